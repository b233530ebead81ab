// Package hat provides the role policy strategies spec.md §4.5 calls
// for: Client, Peer-mesh, Peer-linkstate and Router, each satisfying
// fabric.Hat. Keeping them in a separate package from the interface
// they implement mirrors the teacher's strategy-pattern layering
// (matcher implementations living apart from the Matcher interface).
package hat

import "github.com/meshfabric/fabric"

// Client is the policy for a leaf node with a single uplink face: it
// never needs topology awareness because it only ever has one
// neighbor to route through (spec.md §4.5 "Client").
type Client struct {
	uplink *fabric.Face
}

// NewClient constructs a Client hat with no uplink yet; NewFace sets
// it on first (and only) connection.
func NewClient() *Client { return &Client{} }

func (c *Client) Role() fabric.FaceRole { return fabric.FaceRoleClient }

// AllowEgress is unconditionally true: ComputeDataRoute already
// excludes the originating face, and a Client hat has nothing further
// to restrict — everything it knows about flows to its one uplink.
func (c *Client) AllowEgress(face *fabric.Face, node *fabric.ResourceNode) bool {
	return true
}

func (c *Client) NewFace(face *fabric.Face) {
	c.uplink = face
}

func (c *Client) DropFace(face *fabric.Face) {
	if c.uplink == face {
		c.uplink = nil
	}
}

// Uplink returns the single connected face, or nil if not yet
// connected.
func (c *Client) Uplink() *fabric.Face { return c.uplink }
