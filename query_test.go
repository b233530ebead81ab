package fabric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfabric/fabric/wire"
)

func TestQueryNoneConsolidationEmitsEveryReply(t *testing.T) {
	var replies []wire.Response
	var finaled bool
	q := NewQuery(context.Background(), 1, nil, KeyExpr{}, wire.TargetAll{}, wire.ConsolidationNone, 0, 0,
		func(r wire.Response) { replies = append(replies, r) },
		func() { finaled = true })

	q.Fanout(10)
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}})
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}})
	assert.Len(t, replies, 2)

	assert.True(t, q.BranchFinal(10))
	q.Finalize()
	assert.True(t, finaled)
	assert.Len(t, replies, 2)
}

func TestQueryLatestConsolidationBuffersUntilFinalize(t *testing.T) {
	var replies []wire.Response
	q := NewQuery(context.Background(), 2, nil, KeyExpr{}, wire.TargetAll{}, wire.ConsolidationLatest, 0, 0,
		func(r wire.Response) { replies = append(replies, r) }, nil)

	old := time.Now().Add(-time.Minute)
	newer := time.Now()
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}, Timestamp: &wire.Timestamp{Time: old}})
	assert.Empty(t, replies)
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}, Timestamp: &wire.Timestamp{Time: newer}})
	assert.Empty(t, replies)

	q.Finalize()
	require.Len(t, replies, 1)
	assert.Equal(t, newer, replies[0].Timestamp.Time)
}

func TestQueryMonotonicConsolidationDropsOlderReplies(t *testing.T) {
	var replies []wire.Response
	q := NewQuery(context.Background(), 3, nil, KeyExpr{}, wire.TargetAll{}, wire.ConsolidationMonotonic, 0, 0,
		func(r wire.Response) { replies = append(replies, r) }, nil)

	newer := time.Now()
	older := newer.Add(-time.Minute)
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}, Timestamp: &wire.Timestamp{Time: newer}})
	q.AddReply(wire.Response{KeyExpr: wire.WireExpr{Suffix: "a"}, Timestamp: &wire.Timestamp{Time: older}})
	require.Len(t, replies, 1)
	assert.Equal(t, newer, replies[0].Timestamp.Time)
}

func TestQueryFinalizeIsIdempotent(t *testing.T) {
	var finals int
	q := NewQuery(context.Background(), 4, nil, KeyExpr{}, wire.TargetAll{}, wire.ConsolidationNone, 0, 0, nil,
		func() { finals++ })
	q.Finalize()
	q.Finalize()
	assert.Equal(t, 1, finals)
}

func TestQueryTimeoutCancelsContext(t *testing.T) {
	q := NewQuery(context.Background(), 5, nil, KeyExpr{}, wire.TargetAll{}, wire.ConsolidationNone, 0, 10*time.Millisecond, nil, nil)
	select {
	case <-q.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("query context did not time out")
	}
}
