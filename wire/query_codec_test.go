package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBodyRoundTrip(t *testing.T) {
	cases := []RequestBody{
		{},
		{HasParameters: true, Parameters: "a=1&b=2"},
		{HasConsolidation: true, Consolidation: ConsolidationLatest},
		{
			HasParameters:    true,
			Parameters:       "x",
			HasConsolidation: true,
			Consolidation:    ConsolidationMonotonic,
			SourceInfo:       &SourceInfo{ZID: [16]byte{1, 2, 3}, EID: 42, SN: 7},
			QueryBody:        &QueryBody{Encoding: "text/plain", Payload: []byte("hello")},
		},
	}
	for _, c := range cases {
		flags, payload := EncodeRequestBody(c)
		got, err := DecodeRequestBody(flags, payload)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestQueryFlagsLayout(t *testing.T) {
	flags, _ := EncodeRequestBody(RequestBody{HasParameters: true, Parameters: "k"})
	assert.NotZero(t, flags&queryFlagP)
	assert.Zero(t, flags&queryFlagC)
	assert.Zero(t, flags&queryFlagZ)
}
