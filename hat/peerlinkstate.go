package hat

import (
	"sync"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/linkstate"
)

// PeerLinkState is the link-state peer policy (spec.md §4.4
// "Peer-linkstate"): peers flood adjacency and compute per-root SPF
// trees rather than assuming a full mesh, so a peer only forwards a
// message to the neighbor that sits on the shortest path toward the
// eventual destination set.
type PeerLinkState struct {
	self ZID

	mu    sync.RWMutex
	graph *linkstate.Graph
	tree  *linkstate.Tree
	faces map[uint64]*fabric.Face
	byZID map[linkstate.ZID]*fabric.Face
}

type ZID = linkstate.ZID

// NewPeerLinkState builds a PeerLinkState hat rooted at self, sharing
// graph so Dispatcher-level gossip wiring can feed it adjacency
// updates.
func NewPeerLinkState(self ZID, graph *linkstate.Graph) *PeerLinkState {
	return &PeerLinkState{
		self:  self,
		graph: graph,
		faces: make(map[uint64]*fabric.Face),
		byZID: make(map[linkstate.ZID]*fabric.Face),
	}
}

func (p *PeerLinkState) Role() fabric.FaceRole { return fabric.FaceRolePeer }

// RecomputeTree rebuilds the SPF tree rooted at self from the current
// graph snapshot; callers invoke this after any gossip update changes
// the graph (spec.md §4.4).
func (p *PeerLinkState) RecomputeTree() {
	tree := linkstate.ComputeSPF(p.graph, p.self)
	p.mu.Lock()
	p.tree = tree
	p.mu.Unlock()
}

// AllowEgress restricts forwarding to the neighbor that is the
// SPF-computed first hop for at least one destination reachable
// through that neighbor. Before a tree has ever been computed it falls
// back to flooding, matching the bootstrap behavior of a node that
// hasn't converged yet.
func (p *PeerLinkState) AllowEgress(face *fabric.Face, node *fabric.ResourceNode) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.tree == nil {
		return true
	}
	for dst, hop := range p.tree.NextHop {
		if hop == p.zidOfLocked(face) && p.tree.Reaches(dst) {
			return true
		}
	}
	return false
}

func (p *PeerLinkState) zidOfLocked(face *fabric.Face) linkstate.ZID {
	return linkstate.ZID(face.ZID)
}

func (p *PeerLinkState) NewFace(face *fabric.Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faces[face.ID] = face
	p.byZID[linkstate.ZID(face.ZID)] = face
}

func (p *PeerLinkState) DropFace(face *fabric.Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.faces, face.ID)
	delete(p.byZID, linkstate.ZID(face.ZID))
}
