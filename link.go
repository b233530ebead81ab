package fabric

import "github.com/meshfabric/fabric/wire"

// Envelope is the decoded message a Link transports. Exactly one
// field is set. The engine never touches the byte-level wire format
// (spec.md §1); Envelope is the boundary at which an external codec
// would plug in.
type Envelope struct {
	Declare       *wire.Declare
	Interest      *wire.Interest
	Push          *wire.Push
	Request       *wire.Request
	Response      *wire.Response
	ResponseFinal *wire.ResponseFinal
}

// Link is the transport capability the routing core depends on
// (spec.md §1): batch, close, reliability — nothing about the
// concrete transport (TCP/QUIC/UDS/SHM) leaks through.
type Link interface {
	// SendBatch attempts to hand a batch of envelopes to the
	// transport. It returns false if the batch was dropped for back
	// pressure (spec.md §5): callers decide per message whether that
	// is acceptable (BestEffort) or must be retried (Reliable).
	SendBatch(batch []Envelope) bool
	// Close tears down the underlying transport.
	Close() error
	// IsReliable reports whether the transport guarantees delivery
	// (e.g. TCP) as opposed to best effort (e.g. UDP/SHM ring).
	IsReliable() bool
	// SupportsSHM reports whether the peer advertised the
	// shared-memory extension capability (spec.md §4.8).
	SupportsSHM() bool
}
