package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesResolveAndLookup(t *testing.T) {
	tbl := NewTables(NewZID(), permissiveHat{}, nil)

	node, err := tbl.Resolve("a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", node.Expr())

	got, ok := tbl.Lookup("a/b/c")
	assert.True(t, ok)
	assert.Same(t, node, got)

	_, ok = tbl.Lookup("a/b/d")
	assert.False(t, ok)
}

func TestTablesAddFaceNotifiesHat(t *testing.T) {
	h := &countingHat{}
	tbl := NewTables(NewZID(), h, nil)

	f := tbl.AddFace(&testLink{reliable: true}, FaceRolePeer, NewZID(), 1, TxSequential)
	assert.Equal(t, 1, h.added)
	assert.NotNil(t, f.tables)

	got, ok := tbl.Face(f.ID)
	assert.True(t, ok)
	assert.Same(t, f, got)
}

func TestTablesRemoveFacePrunesDeclarers(t *testing.T) {
	tbl := NewTables(NewZID(), permissiveHat{}, nil)
	node, err := tbl.Resolve("a/b")
	require.NoError(t, err)

	f := tbl.AddFace(&testLink{reliable: true}, FaceRolePeer, NewZID(), 1, TxSequential)
	tbl.WithWriteLock(func(tree *ResourceTree) {
		node.Context().Session(f).SubInfo = &SubInfo{}
		node.Context().AddSubDeclarer(f.Role, f.ZID)
	})

	require.NoError(t, tbl.RemoveFace(f.ID))

	_, ok := tbl.Face(f.ID)
	assert.False(t, ok)
	// The resource had no other declarers, so Clean should have pruned it.
	_, ok = tbl.Lookup("a/b")
	assert.False(t, ok)
}

func TestTablesRemoveFaceUnknownReturnsErrFaceClosed(t *testing.T) {
	tbl := NewTables(NewZID(), permissiveHat{}, nil)
	assert.ErrorIs(t, tbl.RemoveFace(999), ErrFaceClosed)
}

type countingHat struct {
	added, dropped int
}

func (*countingHat) Role() FaceRole                       { return FaceRolePeer }
func (*countingHat) AllowEgress(*Face, *ResourceNode) bool { return true }
func (h *countingHat) NewFace(*Face)                       { h.added++ }
func (h *countingHat) DropFace(*Face)                      { h.dropped++ }
