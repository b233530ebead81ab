package linkstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGossiperSetLinkFloodsAndUpdatesGraph(t *testing.T) {
	self := ZID{1}
	neighbor := ZID{2}
	g := NewGraph()

	var mu sync.Mutex
	var sent []Adjacency
	gr := NewGossiper(self, g, func(adj Adjacency) {
		mu.Lock()
		sent = append(sent, adj)
		mu.Unlock()
	})

	gr.SetLink(neighbor, 5)

	mu.Lock()
	require.Len(t, sent, 1)
	assert.Equal(t, self, sent[0].ZID)
	assert.Equal(t, uint32(5), sent[0].Neighbors[neighbor])
	mu.Unlock()

	snap := g.Snapshot()
	adj, ok := snap[self]
	require.True(t, ok)
	assert.Equal(t, uint32(5), adj.Neighbors[neighbor])
}

func TestGossiperRemoveLinkOnlyFloodsWhenLinkExisted(t *testing.T) {
	self := ZID{1}
	neighbor := ZID{2}
	g := NewGraph()

	floods := 0
	gr := NewGossiper(self, g, func(Adjacency) { floods++ })

	gr.RemoveLink(neighbor)
	assert.Equal(t, 0, floods, "removing an unknown neighbor should not flood")

	gr.SetLink(neighbor, 1)
	gr.RemoveLink(neighbor)
	assert.Equal(t, 2, floods)

	snap := g.Snapshot()
	assert.Empty(t, snap[self].Neighbors)
}

func TestGossiperReceiveRefloodsOnlyNewInformation(t *testing.T) {
	g := NewGraph()
	refloods := 0
	gr := NewGossiper(ZID{1}, g, func(Adjacency) { refloods++ })

	adj := Adjacency{ZID: ZID{9}, SeqNum: 1, Neighbors: map[ZID]uint32{{1}: 3}}
	gr.Receive(adj)
	assert.Equal(t, 1, refloods)

	gr.Receive(adj)
	assert.Equal(t, 1, refloods, "stale/duplicate seqnum must not re-flood")

	adj.SeqNum = 2
	gr.Receive(adj)
	assert.Equal(t, 2, refloods)
}

func TestGossiperRunFloodsPeriodicallyUntilCanceled(t *testing.T) {
	g := NewGraph()
	var count int
	var mu sync.Mutex
	gr := NewGossiper(ZID{1}, g, func(Adjacency) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gr.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
