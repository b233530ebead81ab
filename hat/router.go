package hat

import (
	"sync"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/linkstate"
)

// Router is the full routing-core policy (spec.md §4.5 "Router"): it
// embeds the same SPF-restricted egress as PeerLinkState, plus
// deterministic master election over the set of routers it currently
// sees in the graph, used to arbitrate which single router answers a
// network-wide shared resource (e.g. the admin-space root) rather than
// every router replying identically.
type Router struct {
	*PeerLinkState

	mu         sync.RWMutex
	routerZIDs map[linkstate.ZID]struct{}
}

// NewRouter builds a Router hat rooted at self.
func NewRouter(self ZID, graph *linkstate.Graph) *Router {
	return &Router{
		PeerLinkState: NewPeerLinkState(self, graph),
		routerZIDs:    map[linkstate.ZID]struct{}{self: {}},
	}
}

func (r *Router) Role() fabric.FaceRole { return fabric.FaceRoleRouter }

// NoteRouter records that zid is a known router participating in
// master election (called as routers are discovered via gossip).
func (r *Router) NoteRouter(zid ZID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routerZIDs[zid] = struct{}{}
}

// ForgetRouter removes zid from the election candidate set (e.g. it
// dropped out of the graph entirely).
func (r *Router) ForgetRouter(zid ZID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routerZIDs, zid)
}

// IsMaster reports whether this router is currently the elected master
// among the routers it knows about.
func (r *Router) IsMaster() bool {
	r.mu.RLock()
	candidates := make([]ZID, 0, len(r.routerZIDs))
	for z := range r.routerZIDs {
		candidates = append(candidates, z)
	}
	self := r.self
	r.mu.RUnlock()
	return linkstate.IsMaster(self, candidates)
}
