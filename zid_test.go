package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZIDRoundTripsThroughString(t *testing.T) {
	z := NewZID()
	parsed, err := ParseZID(z.String())
	require.NoError(t, err)
	assert.Equal(t, z, parsed)
}

func TestZIDParseRejectsGarbage(t *testing.T) {
	_, err := ParseZID("not-a-uuid")
	assert.Error(t, err)
}

func TestZIDLessIsByteLexicographic(t *testing.T) {
	a := ZID{0, 1}
	b := ZID{0, 2}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}
