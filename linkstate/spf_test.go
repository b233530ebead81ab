package linkstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zid(b byte) ZID {
	var z ZID
	z[0] = b
	return z
}

func TestComputeSPFShortestPath(t *testing.T) {
	g := NewGraph()
	a, b, c := zid(1), zid(2), zid(3)

	g.Update(Adjacency{ZID: a, SeqNum: 1, Neighbors: map[ZID]uint32{b: 5, c: 1}})
	g.Update(Adjacency{ZID: c, SeqNum: 1, Neighbors: map[ZID]uint32{a: 1, b: 1}})
	g.Update(Adjacency{ZID: b, SeqNum: 1, Neighbors: map[ZID]uint32{a: 5, c: 1}})

	tree := ComputeSPF(g, a)
	require.True(t, tree.Reaches(b))
	assert.EqualValues(t, 2, tree.Distance[b]) // a->c->b beats a->b direct
	assert.Equal(t, c, tree.NextHop[b])
}

func TestGraphUpdateRejectsStaleSeq(t *testing.T) {
	g := NewGraph()
	z := zid(9)
	assert.True(t, g.Update(Adjacency{ZID: z, SeqNum: 5}))
	assert.False(t, g.Update(Adjacency{ZID: z, SeqNum: 3}))
	assert.True(t, g.Update(Adjacency{ZID: z, SeqNum: 6}))
}

func TestElectMasterDeterministic(t *testing.T) {
	candidates := []ZID{zid(5), zid(1), zid(9)}
	master, ok := ElectMaster(candidates)
	require.True(t, ok)
	assert.Equal(t, zid(1), master)
	assert.True(t, IsMaster(zid(1), candidates))
	assert.False(t, IsMaster(zid(5), candidates))
}
