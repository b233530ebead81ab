package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfabric/fabric/wire"
)

func TestPullDrainsOnlyMostRecentValue(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")
	face := newTestFace(1)
	sc := node.Context().Session(face)
	sc.SubInfo = &SubInfo{Pull: true}

	cachePulled(sc, wire.Push{Body: wire.Put{Payload: []byte("first")}})
	cachePulled(sc, wire.Push{Body: wire.Put{Payload: []byte("second")}})

	// Only the most recent value is kept for the drain.
	require.NotNil(t, sc.LastValues)
	assert.Equal(t, []byte("second"), sc.LastValues.Body.(wire.Put).Payload)

	assert.True(t, Pull(node, face))
	// Nothing pending after the drain.
	assert.False(t, Pull(node, face))
}

func TestPullFalseForNonPullSubscriber(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")
	face := newTestFace(1)
	node.Context().Session(face).SubInfo = &SubInfo{Pull: false}

	assert.False(t, Pull(node, face))
}

func TestPullFalseForUnknownFace(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")
	assert.False(t, Pull(node, newTestFace(1)))
}
