package hat

import (
	"sync"

	"github.com/meshfabric/fabric"
)

// PeerMesh is the full-mesh gossip policy (spec.md §4.4 "Peer-mesh"):
// every peer connects to every other peer directly, so routing needs
// no topology computation — flood to every neighbor but the one a
// message arrived from, which ComputeDataRoute already excludes.
type PeerMesh struct {
	mu    sync.RWMutex
	peers map[uint64]*fabric.Face
}

// NewPeerMesh constructs an empty PeerMesh hat.
func NewPeerMesh() *PeerMesh {
	return &PeerMesh{peers: make(map[uint64]*fabric.Face)}
}

func (p *PeerMesh) Role() fabric.FaceRole { return fabric.FaceRolePeer }

func (p *PeerMesh) AllowEgress(face *fabric.Face, node *fabric.ResourceNode) bool {
	return true
}

func (p *PeerMesh) NewFace(face *fabric.Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[face.ID] = face
}

func (p *PeerMesh) DropFace(face *fabric.Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, face.ID)
}

// Peers returns a snapshot of the connected mesh peers.
func (p *PeerMesh) Peers() []*fabric.Face {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*fabric.Face, 0, len(p.peers))
	for _, f := range p.peers {
		out = append(out, f)
	}
	return out
}
