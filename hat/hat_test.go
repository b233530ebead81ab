package hat

import (
	"testing"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/linkstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct{}

func (fakeLink) SendBatch(batch []fabric.Envelope) bool { return true }
func (fakeLink) Close() error                           { return nil }
func (fakeLink) IsReliable() bool                       { return true }
func (fakeLink) SupportsSHM() bool                      { return false }

func newTestFace(t *testing.T, id uint64) *fabric.Face {
	t.Helper()
	return fabric.NewFace(id, fabric.NewZID(), fabric.FaceRolePeer, id, fakeLink{}, nil, fabric.TxSequential)
}

func newTestFaceWithZID(t *testing.T, id uint64, zid linkstate.ZID) *fabric.Face {
	t.Helper()
	return fabric.NewFace(id, fabric.ZID(zid), fabric.FaceRolePeer, id, fakeLink{}, nil, fabric.TxSequential)
}

func TestClientTracksSingleUplink(t *testing.T) {
	c := NewClient()
	f := newTestFace(t, 1)
	c.NewFace(f)
	require.Equal(t, f, c.Uplink())
	c.DropFace(f)
	assert.Nil(t, c.Uplink())
}

func TestPeerMeshAllowsEveryNeighbor(t *testing.T) {
	pm := NewPeerMesh()
	f1 := newTestFace(t, 1)
	f2 := newTestFace(t, 2)
	pm.NewFace(f1)
	pm.NewFace(f2)

	assert.True(t, pm.AllowEgress(f1, nil))
	assert.True(t, pm.AllowEgress(f2, nil))
	assert.Len(t, pm.Peers(), 2)

	pm.DropFace(f1)
	assert.Len(t, pm.Peers(), 1)
}

func TestPeerLinkStateFloodsBeforeFirstTree(t *testing.T) {
	self := linkstate.ZID{1}
	graph := linkstate.NewGraph()
	pls := NewPeerLinkState(self, graph)

	f := newTestFaceWithZID(t, 1, linkstate.ZID{2})
	pls.NewFace(f)

	assert.True(t, pls.AllowEgress(f, nil), "no SPF tree yet should fall back to flooding")
}

func TestPeerLinkStateRestrictsEgressToSPFNextHop(t *testing.T) {
	self := linkstate.ZID{1}
	onPath := linkstate.ZID{2}
	offPath := linkstate.ZID{3}
	dst := linkstate.ZID{9}

	graph := linkstate.NewGraph()
	// offPath is a direct neighbor, but its direct link costs more than
	// the route through onPath, so onPath is the first hop for every
	// destination (offPath included).
	graph.Update(linkstate.Adjacency{ZID: self, SeqNum: 1, Neighbors: map[linkstate.ZID]uint32{onPath: 1, offPath: 5}})
	graph.Update(linkstate.Adjacency{ZID: onPath, SeqNum: 1, Neighbors: map[linkstate.ZID]uint32{dst: 1, offPath: 1}})

	pls := NewPeerLinkState(self, graph)
	onPathFace := newTestFaceWithZID(t, 1, onPath)
	offPathFace := newTestFaceWithZID(t, 2, offPath)
	pls.NewFace(onPathFace)
	pls.NewFace(offPathFace)

	pls.RecomputeTree()

	assert.True(t, pls.AllowEgress(onPathFace, nil))
	assert.False(t, pls.AllowEgress(offPathFace, nil))
}

func TestPeerLinkStateDropFaceForgetsNeighbor(t *testing.T) {
	self := linkstate.ZID{1}
	graph := linkstate.NewGraph()
	pls := NewPeerLinkState(self, graph)

	f := newTestFaceWithZID(t, 1, linkstate.ZID{2})
	pls.NewFace(f)
	pls.DropFace(f)

	assert.NotContains(t, pls.faces, f.ID)
	assert.NotContains(t, pls.byZID, linkstate.ZID{2})
	assert.True(t, pls.AllowEgress(f, nil), "dropped face with nil tree still falls back to flooding")
}

func TestRouterElectsMasterAmongKnownRouters(t *testing.T) {
	self := linkstate.ZID{1}
	other := linkstate.ZID{0}
	graph := linkstate.NewGraph()

	r := NewRouter(self, graph)
	assert.True(t, r.IsMaster(), "sole known router is its own master")

	r.NoteRouter(other)
	assert.False(t, r.IsMaster(), "a lower ZID joined the candidate set")

	r.ForgetRouter(other)
	assert.True(t, r.IsMaster())
}

func TestRouterRoleIsRouter(t *testing.T) {
	r := NewRouter(linkstate.ZID{1}, linkstate.NewGraph())
	assert.Equal(t, fabric.FaceRoleRouter, r.Role())
}
