package linkstate

import (
	"context"
	"sync"
	"time"
)

// Gossiper periodically floods this node's own Adjacency to its
// directly connected neighbors and re-floods any update it learns
// about from a neighbor that the local Graph didn't already have
// (spec.md §4.4 flooding). Loop suppression comes from Graph.Update's
// sequence-number check: a flood that doesn't advance a node's SeqNum
// is silently dropped instead of re-forwarded.
type Gossiper struct {
	self ZID
	g    *Graph

	mu        sync.Mutex
	neighbors map[ZID]uint32
	seq       uint64

	send func(Adjacency) // broadcast callback, wired to the face table by the caller
}

// NewGossiper builds a Gossiper for self over g, using send to
// broadcast flooded adjacencies to connected neighbors.
func NewGossiper(self ZID, g *Graph, send func(Adjacency)) *Gossiper {
	return &Gossiper{self: self, g: g, neighbors: make(map[ZID]uint32), send: send}
}

// SetLink records/updates the cost of a direct link to neighbor,
// bumping this node's own sequence number and triggering an immediate
// flood (a link appearing or its cost changing is not deferred to the
// next periodic tick).
func (gr *Gossiper) SetLink(neighbor ZID, cost uint32) {
	gr.mu.Lock()
	gr.neighbors[neighbor] = cost
	gr.seq++
	adj := gr.snapshotLocked()
	gr.mu.Unlock()
	gr.g.Update(adj)
	gr.send(adj)
}

// RemoveLink drops a direct neighbor (e.g. its face closed).
func (gr *Gossiper) RemoveLink(neighbor ZID) {
	gr.mu.Lock()
	if _, ok := gr.neighbors[neighbor]; !ok {
		gr.mu.Unlock()
		return
	}
	delete(gr.neighbors, neighbor)
	gr.seq++
	adj := gr.snapshotLocked()
	gr.mu.Unlock()
	gr.g.Update(adj)
	gr.send(adj)
}

func (gr *Gossiper) snapshotLocked() Adjacency {
	neighbors := make(map[ZID]uint32, len(gr.neighbors))
	for k, v := range gr.neighbors {
		neighbors[k] = v
	}
	return Adjacency{ZID: gr.self, SeqNum: gr.seq, Neighbors: neighbors}
}

// Receive applies a neighbor's flooded adjacency to the graph and
// re-floods it further if it was new information.
func (gr *Gossiper) Receive(adj Adjacency) {
	if gr.g.Update(adj) {
		gr.send(adj)
	}
}

// Run periodically re-floods this node's own adjacency (a keepalive
// independent of link-change-triggered floods) until ctx is canceled.
func (gr *Gossiper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gr.mu.Lock()
			adj := gr.snapshotLocked()
			gr.mu.Unlock()
			gr.send(adj)
		}
	}
}
