package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshfabric/fabric/hat"
	"github.com/meshfabric/fabric/linkstate"
)

func TestResolveZIDEmptyGeneratesFresh(t *testing.T) {
	a, err := resolveZID("")
	require.NoError(t, err)
	b, err := resolveZID("")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveZIDParsesCanonicalUUID(t *testing.T) {
	zid, err := resolveZID("00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", zid.String())
}

func TestResolveZIDRejectsGarbage(t *testing.T) {
	_, err := resolveZID("not-a-uuid")
	assert.Error(t, err)
}

func TestBuildHatSelectsStrategyByRole(t *testing.T) {
	graph := linkstate.NewGraph()
	zid, err := resolveZID("")
	require.NoError(t, err)

	assert.IsType(t, &hat.Client{}, buildHat("client", zid, graph))
	assert.IsType(t, &hat.PeerMesh{}, buildHat("peer-mesh", zid, graph))
	assert.IsType(t, &hat.PeerMesh{}, buildHat("unknown-role", zid, graph))
	assert.IsType(t, &hat.PeerLinkState{}, buildHat("peer-linkstate", zid, graph))
	assert.IsType(t, &hat.Router{}, buildHat("router", zid, graph))
}

func TestNewSlogBridgeReturnsUsableLogger(t *testing.T) {
	logger := newSlogBridge()
	require.NotNil(t, logger)
	logger.Info("reachable")
}
