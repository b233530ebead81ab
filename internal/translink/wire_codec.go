package translink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/wire"
)

// This file is the reference transport's JSON codec for fabric's
// sum-type wire fields (wire.DeclareBody, wire.PayloadBody,
// wire.QueryTarget): encoding/json can't marshal a Go interface value
// without knowing which concrete type to decode back into, so each
// sum type gets a "kind" tag alongside its json.RawMessage payload,
// the standard discriminated-union shape for interface-typed fields.

type envelopeKind string

const (
	kindDeclare       envelopeKind = "declare"
	kindInterest      envelopeKind = "interest"
	kindPush          envelopeKind = "push"
	kindRequest       envelopeKind = "request"
	kindResponse      envelopeKind = "response"
	kindResponseFinal envelopeKind = "response_final"
)

type taggedEnvelope struct {
	Kind envelopeKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func marshalEnvelope(env fabric.Envelope) ([]byte, error) {
	var kind envelopeKind
	var data any
	switch {
	case env.Declare != nil:
		kind, data = kindDeclare, marshalDeclare(*env.Declare)
	case env.Interest != nil:
		kind, data = kindInterest, env.Interest
	case env.Push != nil:
		kind, data = kindPush, marshalPush(*env.Push)
	case env.Request != nil:
		kind, data = kindRequest, marshalRequest(*env.Request)
	case env.Response != nil:
		kind, data = kindResponse, marshalResponse(*env.Response)
	case env.ResponseFinal != nil:
		kind, data = kindResponseFinal, env.ResponseFinal
	default:
		return nil, fmt.Errorf("translink: empty envelope")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedEnvelope{Kind: kind, Data: raw})
}

func unmarshalEnvelope(raw []byte) (fabric.Envelope, error) {
	var t taggedEnvelope
	if err := json.Unmarshal(raw, &t); err != nil {
		return fabric.Envelope{}, err
	}
	var env fabric.Envelope
	switch t.Kind {
	case kindDeclare:
		d, err := unmarshalDeclare(t.Data)
		if err != nil {
			return env, err
		}
		env.Declare = &d
	case kindInterest:
		var it wire.Interest
		if err := json.Unmarshal(t.Data, &it); err != nil {
			return env, err
		}
		env.Interest = &it
	case kindPush:
		p, err := unmarshalPush(t.Data)
		if err != nil {
			return env, err
		}
		env.Push = &p
	case kindRequest:
		r, err := unmarshalRequest(t.Data)
		if err != nil {
			return env, err
		}
		env.Request = &r
	case kindResponse:
		r, err := unmarshalResponse(t.Data)
		if err != nil {
			return env, err
		}
		env.Response = &r
	case kindResponseFinal:
		var f wire.ResponseFinal
		if err := json.Unmarshal(t.Data, &f); err != nil {
			return env, err
		}
		env.ResponseFinal = &f
	default:
		return env, fmt.Errorf("translink: unknown envelope kind %q", t.Kind)
	}
	return env, nil
}

// --- Declare / DeclareBody ---

type declareBodyKind string

const (
	dbDeclareKeyExpr     declareBodyKind = "declare_key_expr"
	dbUndeclareKeyExpr   declareBodyKind = "undeclare_key_expr"
	dbDeclareSubscriber  declareBodyKind = "declare_subscriber"
	dbUndeclareSub       declareBodyKind = "undeclare_subscriber"
	dbDeclareQueryable   declareBodyKind = "declare_queryable"
	dbUndeclareQbl       declareBodyKind = "undeclare_queryable"
	dbDeclareToken       declareBodyKind = "declare_token"
	dbUndeclareToken     declareBodyKind = "undeclare_token"
	dbDeclareFinal       declareBodyKind = "declare_final"
)

type taggedDeclare struct {
	InterestID *uint64         `json:"interest_id,omitempty"`
	QoS        wire.QoS        `json:"qos"`
	Timestamp  *wire.Timestamp `json:"timestamp,omitempty"`
	NodeID     uint64          `json:"node_id"`
	BodyKind   declareBodyKind `json:"body_kind"`
	Body       json.RawMessage `json:"body"`
}

func marshalDeclare(d wire.Declare) taggedDeclare {
	kind, body := marshalDeclareBody(d.Body)
	return taggedDeclare{InterestID: d.InterestID, QoS: d.QoS, Timestamp: d.Timestamp, NodeID: d.NodeID, BodyKind: kind, Body: body}
}

func marshalDeclareBody(b wire.DeclareBody) (declareBodyKind, json.RawMessage) {
	var kind declareBodyKind
	switch b.(type) {
	case wire.DeclareKeyExpr:
		kind = dbDeclareKeyExpr
	case wire.UndeclareKeyExpr:
		kind = dbUndeclareKeyExpr
	case wire.DeclareSubscriber:
		kind = dbDeclareSubscriber
	case wire.UndeclareSubscriber:
		kind = dbUndeclareSub
	case wire.DeclareQueryable:
		kind = dbDeclareQueryable
	case wire.UndeclareQueryable:
		kind = dbUndeclareQbl
	case wire.DeclareToken:
		kind = dbDeclareToken
	case wire.UndeclareToken:
		kind = dbUndeclareToken
	default:
		kind = dbDeclareFinal
	}
	raw, _ := json.Marshal(b)
	return kind, raw
}

func unmarshalDeclare(raw json.RawMessage) (wire.Declare, error) {
	var t taggedDeclare
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Declare{}, err
	}
	body, err := unmarshalDeclareBody(t.BodyKind, t.Body)
	if err != nil {
		return wire.Declare{}, err
	}
	return wire.Declare{InterestID: t.InterestID, QoS: t.QoS, Timestamp: t.Timestamp, NodeID: t.NodeID, Body: body}, nil
}

func unmarshalDeclareBody(kind declareBodyKind, raw json.RawMessage) (wire.DeclareBody, error) {
	switch kind {
	case dbDeclareKeyExpr:
		var v wire.DeclareKeyExpr
		return v, json.Unmarshal(raw, &v)
	case dbUndeclareKeyExpr:
		var v wire.UndeclareKeyExpr
		return v, json.Unmarshal(raw, &v)
	case dbDeclareSubscriber:
		var v wire.DeclareSubscriber
		return v, json.Unmarshal(raw, &v)
	case dbUndeclareSub:
		var v wire.UndeclareSubscriber
		return v, json.Unmarshal(raw, &v)
	case dbDeclareQueryable:
		var v wire.DeclareQueryable
		return v, json.Unmarshal(raw, &v)
	case dbUndeclareQbl:
		var v wire.UndeclareQueryable
		return v, json.Unmarshal(raw, &v)
	case dbDeclareToken:
		var v wire.DeclareToken
		return v, json.Unmarshal(raw, &v)
	case dbUndeclareToken:
		var v wire.UndeclareToken
		return v, json.Unmarshal(raw, &v)
	default:
		return wire.DeclareFinal{}, nil
	}
}

// --- Push / Response payload (PayloadBody) ---

type payloadKind string

const (
	pkPut    payloadKind = "put"
	pkDelete payloadKind = "delete"
)

func marshalPayloadBody(b wire.PayloadBody) (payloadKind, json.RawMessage) {
	if _, ok := b.(wire.Delete); ok {
		raw, _ := json.Marshal(b)
		return pkDelete, raw
	}
	raw, _ := json.Marshal(b)
	return pkPut, raw
}

func unmarshalPayloadBody(kind payloadKind, raw json.RawMessage) (wire.PayloadBody, error) {
	switch kind {
	case pkDelete:
		var v wire.Delete
		return v, json.Unmarshal(raw, &v)
	default:
		var v wire.Put
		return v, json.Unmarshal(raw, &v)
	}
}

type taggedPush struct {
	KeyExpr     wire.WireExpr   `json:"key_expr"`
	QoS         wire.QoS        `json:"qos"`
	Timestamp   *wire.Timestamp `json:"timestamp,omitempty"`
	NodeID      uint64          `json:"node_id"`
	PayloadKind payloadKind     `json:"payload_kind"`
	Payload     json.RawMessage `json:"payload"`
}

func marshalPush(p wire.Push) taggedPush {
	kind, payload := marshalPayloadBody(p.Body)
	return taggedPush{KeyExpr: p.KeyExpr, QoS: p.QoS, Timestamp: p.Timestamp, NodeID: p.NodeID, PayloadKind: kind, Payload: payload}
}

func unmarshalPush(raw json.RawMessage) (wire.Push, error) {
	var t taggedPush
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Push{}, err
	}
	body, err := unmarshalPayloadBody(t.PayloadKind, t.Payload)
	if err != nil {
		return wire.Push{}, err
	}
	return wire.Push{KeyExpr: t.KeyExpr, QoS: t.QoS, Timestamp: t.Timestamp, NodeID: t.NodeID, Body: body}, nil
}

type taggedResponse struct {
	RID         uint64          `json:"rid"`
	QoS         wire.QoS        `json:"qos"`
	Timestamp   *wire.Timestamp `json:"timestamp,omitempty"`
	ReplierID   *[16]byte       `json:"replier_id,omitempty"`
	KeyExpr     wire.WireExpr   `json:"key_expr"`
	PayloadKind payloadKind     `json:"payload_kind"`
	Payload     json.RawMessage `json:"payload"`
}

func marshalResponse(r wire.Response) taggedResponse {
	kind, payload := marshalPayloadBody(r.Payload)
	return taggedResponse{RID: r.RID, QoS: r.QoS, Timestamp: r.Timestamp, ReplierID: r.ReplierID, KeyExpr: r.KeyExpr, PayloadKind: kind, Payload: payload}
}

func unmarshalResponse(raw json.RawMessage) (wire.Response, error) {
	var t taggedResponse
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Response{}, err
	}
	payload, err := unmarshalPayloadBody(t.PayloadKind, t.Payload)
	if err != nil {
		return wire.Response{}, err
	}
	return wire.Response{RID: t.RID, QoS: t.QoS, Timestamp: t.Timestamp, ReplierID: t.ReplierID, KeyExpr: t.KeyExpr, Payload: payload}, nil
}

// --- Request / QueryTarget ---

type targetKind string

const (
	tkBestMatching targetKind = "best_matching"
	tkAll          targetKind = "all"
	tkAllComplete  targetKind = "all_complete"
	tkComplete     targetKind = "complete"
)

func marshalTarget(t wire.QueryTarget) (targetKind, json.RawMessage) {
	switch v := t.(type) {
	case wire.TargetAll:
		raw, _ := json.Marshal(v)
		return tkAll, raw
	case wire.TargetAllComplete:
		raw, _ := json.Marshal(v)
		return tkAllComplete, raw
	case wire.TargetComplete:
		raw, _ := json.Marshal(v)
		return tkComplete, raw
	default:
		raw, _ := json.Marshal(wire.TargetBestMatching{})
		return tkBestMatching, raw
	}
}

func unmarshalTarget(kind targetKind, raw json.RawMessage) (wire.QueryTarget, error) {
	switch kind {
	case tkAll:
		var v wire.TargetAll
		return v, json.Unmarshal(raw, &v)
	case tkAllComplete:
		var v wire.TargetAllComplete
		return v, json.Unmarshal(raw, &v)
	case tkComplete:
		var v wire.TargetComplete
		return v, json.Unmarshal(raw, &v)
	default:
		return wire.TargetBestMatching{}, nil
	}
}

type taggedRequest struct {
	ID         uint64           `json:"id"`
	KeyExpr    wire.WireExpr    `json:"key_expr"`
	QoS        wire.QoS         `json:"qos"`
	Timestamp  *wire.Timestamp  `json:"timestamp,omitempty"`
	TargetKind targetKind       `json:"target_kind"`
	Target     json.RawMessage  `json:"target"`
	Budget     uint64           `json:"budget"`
	Timeout    time.Duration    `json:"timeout"`
	Body       wire.RequestBody `json:"body"`
	Reliable   bool             `json:"reliable"`
}

func marshalRequest(r wire.Request) taggedRequest {
	kind, target := marshalTarget(r.Target)
	return taggedRequest{
		ID: r.ID, KeyExpr: r.KeyExpr, QoS: r.QoS, Timestamp: r.Timestamp,
		TargetKind: kind, Target: target, Budget: r.Budget, Timeout: r.Timeout,
		Body: r.Body, Reliable: r.Reliable,
	}
}

func unmarshalRequest(raw json.RawMessage) (wire.Request, error) {
	var t taggedRequest
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Request{}, err
	}
	target, err := unmarshalTarget(t.TargetKind, t.Target)
	if err != nil {
		return wire.Request{}, err
	}
	return wire.Request{
		ID: t.ID, KeyExpr: t.KeyExpr, QoS: t.QoS, Timestamp: t.Timestamp,
		Target: target, Budget: t.Budget, Timeout: t.Timeout,
		Body: t.Body, Reliable: t.Reliable,
	}, nil
}
