package fabric

import (
	"log/slog"
	"sync"
)

// Tables is the engine's single piece of global mutable state (spec.md
// §5): the resource tree, the live face table, and the hat strategy
// that decides routing policy. Every mutating operation takes the
// write lock; route lookups on the hot path take only the read lock
// and lean on ResourceContext's copy-on-write route cache to avoid
// recomputation under contention.
type Tables struct {
	mu sync.RWMutex

	ZID ZID
	log *slog.Logger

	tree  *ResourceTree
	hat   Hat
	faces map[uint64]*Face

	nextFaceID uint64

	scheduler *TreeScheduler
}

// treeRecomputer is satisfied by hats that maintain a shortest-path
// tree (PeerLinkState, Router); Tables triggers it through the
// TreeScheduler without importing the hat package.
type treeRecomputer interface {
	RecomputeTree()
}

// NewTables constructs an empty Tables for the local zid, running the
// given hat strategy.
func NewTables(zid ZID, hat Hat, log *slog.Logger) *Tables {
	if log == nil {
		log = slog.Default()
	}
	t := &Tables{
		ZID:   zid,
		log:   log,
		tree:  NewResourceTree(log.With("component", "restree")),
		hat:   hat,
		faces: make(map[uint64]*Face),
	}
	t.scheduler = NewTreeScheduler(t.recompute)
	return t
}

// recompute is the Tables' TreeScheduler pass: it asks the hat to
// rebuild its shortest-path tree (a no-op for hats that don't
// maintain one, e.g. Client/PeerMesh) and drops every cached route so
// the next lookup recomputes against the fresh topology.
func (t *Tables) recompute() {
	if r, ok := t.hat.(treeRecomputer); ok {
		r.RecomputeTree()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tree.walk(t.tree.Root(), func(n *ResourceNode) {
		n.Context().invalidateRoutes()
	})
}

// TriggerRecompute asks the Tables' TreeScheduler for a coalesced
// route/tree recompute pass (spec.md §4.4/§4.6); callers invoke this
// after a gossip update changes the link-state graph.
func (t *Tables) TriggerRecompute() {
	t.scheduler.Request()
}

// AddFace registers a newly connected peer and returns its Face
// handle. The hat is notified so it can set up role-specific state
// (e.g. a link-state adjacency) before the face is visible to routing.
func (t *Tables) AddFace(link Link, role FaceRole, peerZID ZID, linkID uint64, policy TxDispatchPolicy) *Face {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextFaceID++
	id := t.nextFaceID
	f := NewFace(id, peerZID, role, linkID, link, t.log.With("face_id", id, "peer_zid", peerZID), policy)
	f.tables = t
	t.faces[id] = f
	t.hat.NewFace(f)
	t.log.Info("face added", "face_id", id, "role", role, "peer_zid", peerZID)
	return f
}

// RemoveFace tears down a departed face: it lets the hat react first
// (e.g. re-advertise a transient peer's declarations before routes are
// purged, per DESIGN.md's failover-brokering decision), then walks the
// whole tree dropping the face's sessions and declarer entries,
// pruning resources left with no declarers, and finally closes the
// face and drops it from the table.
func (t *Tables) RemoveFace(faceID uint64) error {
	t.mu.Lock()
	f, ok := t.faces[faceID]
	if !ok {
		t.mu.Unlock()
		return ErrFaceClosed
	}
	t.hat.DropFace(f)

	var touched []*ResourceNode
	t.tree.walk(t.tree.Root(), func(n *ResourceNode) {
		ctx := n.Context()
		if sc, ok := ctx.sessions[faceID]; ok {
			_ = sc
			delete(ctx.sessions, faceID)
			ctx.RemoveSubDeclarer(f.Role, f.ZID)
			ctx.RemoveQblDeclarer(f.Role, f.ZID)
			for _, mn := range ctx.Matches() {
				mn.Context().invalidateRoutes()
			}
			touched = append(touched, n)
		}
	})
	for _, n := range touched {
		t.tree.Clean(n)
	}

	delete(t.faces, faceID)
	t.mu.Unlock()

	t.log.Info("face removed", "face_id", faceID)
	return f.Close()
}

// Face looks up a connected face by id.
func (t *Tables) Face(id uint64) (*Face, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.faces[id]
	return f, ok
}

// Resolve resolves expr to its ResourceNode, creating intermediate
// trie nodes as needed (spec.md §4.2 get_or_insert semantics).
func (t *Tables) Resolve(expr string) (*ResourceNode, error) {
	if _, err := ParseKeyExpr(expr); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.GetOrInsert(t.tree.Root(), expr), nil
}

// Lookup resolves expr without creating new nodes.
func (t *Tables) Lookup(expr string) (*ResourceNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Get(t.tree.Root(), expr)
}

// Matches returns every node whose expression intersects expr.
func (t *Tables) Matches(expr string) []*ResourceNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Matches(t.tree.Root(), expr)
}

// WithWriteLock runs fn holding the Tables write lock, for callers
// (dispatch.go) that need to mutate the tree and several
// ResourceContexts as one atomic step.
func (t *Tables) WithWriteLock(fn func(tree *ResourceTree)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.tree)
}

// WithReadLock runs fn holding the Tables read lock.
func (t *Tables) WithReadLock(fn func(tree *ResourceTree)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t.tree)
}

// CleanAndPrune removes node and any now-childless ancestors that
// carry no declarers (spec.md §4.2 invariant I2); callers must already
// hold the write lock.
func (t *Tables) CleanAndPrune(node *ResourceNode) {
	t.tree.Clean(node)
}
