// Copyright 2026 The Fabric Authors. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/meshfabric/fabric/blob/master/LICENSE.txt.

// Package wire defines the decoded message shapes the routing engine
// exchanges over a Link (spec.md §6). It is deliberately not a
// byte-level codec: the byte-level wire format is an external
// collaborator per spec.md §1, except for the Query flags byte, whose
// bit-exact layout spec.md §6 specifies and which this package
// reproduces so implementations can interoperate on that one detail.
package wire

import "time"

// QoS carries the priority/congestion-control/reliability triple that
// rides along with every data-plane message.
type QoS struct {
	Priority         uint8
	CongestionDrop   bool // true: Drop, false: Block, per spec.md §5 back-pressure paragraph
	ExpressChannel   bool
	ReliabilityIsRel bool
}

// Timestamp is the optional HLC stamp carried by Push/Request/Response
// messages (spec.md §4.6 "Timestamp treatment").
type Timestamp struct {
	Time    time.Time
	Counter uint16
	ZID     [16]byte
}

// DeclareBody is the sum type spec.md §6 lists for a Declare message.
type DeclareBody interface{ isDeclareBody() }

type DeclareKeyExpr struct {
	ID     uint64
	Expr   string
	Scope  uint64 // 0 if Expr is absolute
	Suffix string
}
type UndeclareKeyExpr struct{ ID uint64 }

type DeclareSubscriber struct {
	ID       uint64
	KeyExpr  WireExpr
	Pull     bool
	ZID      [16]byte
	Distance uint32
}
type UndeclareSubscriber struct {
	ID      uint64
	KeyExpr WireExpr
}

type DeclareQueryable struct {
	ID       uint64
	KeyExpr  WireExpr
	Complete bool
	Distance uint32
	ZID      [16]byte
}
type UndeclareQueryable struct {
	ID      uint64
	KeyExpr WireExpr
}

type DeclareToken struct {
	ID      uint64
	KeyExpr WireExpr
	ZID     [16]byte
}
type UndeclareToken struct {
	ID      uint64
	KeyExpr WireExpr
}

type DeclareFinal struct{}

func (DeclareKeyExpr) isDeclareBody()      {}
func (UndeclareKeyExpr) isDeclareBody()    {}
func (DeclareSubscriber) isDeclareBody()   {}
func (UndeclareSubscriber) isDeclareBody() {}
func (DeclareQueryable) isDeclareBody()    {}
func (UndeclareQueryable) isDeclareBody()  {}
func (DeclareToken) isDeclareBody()        {}
func (UndeclareToken) isDeclareBody()      {}
func (DeclareFinal) isDeclareBody()        {}

// Declare is the declaration-plane message shape of spec.md §6.
type Declare struct {
	InterestID *uint64
	QoS        QoS
	Timestamp  *Timestamp
	NodeID     uint64
	Body       DeclareBody
}

// InterestMode is the declare-interest enumeration (spec.md §4.3).
type InterestMode uint8

const (
	InterestCurrent InterestMode = iota
	InterestFuture
	InterestCurrentFuture
	InterestFinal
)

// InterestOptions is the options bitset carried on an Interest
// message.
type InterestOptions struct {
	Subscribers bool
	Queryables  bool
	Tokens      bool
	Aggregate   bool
}

// Interest opens (or, with Mode==InterestFinal, closes) a subscription
// to routing-state changes.
type Interest struct {
	ID      uint64
	KeyExpr *WireExpr
	Mode    InterestMode
	Options InterestOptions
}

// WireExpr is the decoded (scope, suffix, mapping-side) compressed
// key expression (spec.md §3).
type WireExpr struct {
	Scope   uint64
	Suffix  string
	OnSender bool // true: Sender-side mapping, false: Receiver-side
}

// PayloadBody distinguishes a data push's Put from a Delete.
type PayloadBody interface{ isPayloadBody() }

type Put struct {
	Payload  []byte
	Encoding string
}
type Delete struct{}

func (Put) isPayloadBody()    {}
func (Delete) isPayloadBody() {}

// Push is a data-plane publication (spec.md §6).
type Push struct {
	KeyExpr   WireExpr
	QoS       QoS
	Timestamp *Timestamp
	NodeID    uint64
	Body      PayloadBody
}

// ConsolidationMode is the wire enum None=0, Monotonic=1, Latest=2
// from spec.md §6.
type ConsolidationMode uint8

const (
	ConsolidationNone ConsolidationMode = iota
	ConsolidationMonotonic
	ConsolidationLatest
)

// QueryTarget is the local API enum carried on requests.
type QueryTarget interface{ isQueryTarget() }

type TargetBestMatching struct{}
type TargetAll struct{}
type TargetAllComplete struct{}
type TargetComplete struct{ N uint64 }

func (TargetBestMatching) isQueryTarget() {}
func (TargetAll) isQueryTarget()          {}
func (TargetAllComplete) isQueryTarget()  {}
func (TargetComplete) isQueryTarget()     {}

// RequestBody carries a query's optional parameters/body, matching
// the Query wire message flags (P/C/Z) from spec.md §6.
type RequestBody struct {
	Parameters    string
	HasParameters bool

	Consolidation    ConsolidationMode
	HasConsolidation bool

	SourceInfo *SourceInfo
	QueryBody  *QueryBody
}

// SourceInfo is the Z-extension carrying (zid, entity id, sequence
// number) of the query's originator.
type SourceInfo struct {
	ZID [16]byte
	EID uint32
	SN  uint32
}

// QueryBody is the Z-extension carrying an optional payload attached
// to the query.
type QueryBody struct {
	Encoding string
	Payload  []byte
}

// Request is a Query message (spec.md §6).
type Request struct {
	ID        uint64
	KeyExpr   WireExpr
	QoS       QoS
	Timestamp *Timestamp
	Target    QueryTarget
	Budget    uint64
	Timeout   time.Duration
	Body      RequestBody
	Reliable  bool
}

// Response is a partial reply to a query.
type Response struct {
	RID       uint64
	QoS       QoS
	Timestamp *Timestamp
	ReplierID *[16]byte
	KeyExpr   WireExpr
	Payload   PayloadBody
}

// ResponseFinal closes a query's reply stream.
type ResponseFinal struct {
	RID uint64
}
