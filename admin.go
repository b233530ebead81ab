package fabric

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meshfabric/fabric/wire"
)

// AdminSpace answers introspection queries under the "@/<zid>/..."
// prefix (SPEC_FULL.md §4.9, adapted from the teacher's debug
// introspection handler): rather than exposing routes over HTTP, it
// answers them as a local queryable over the same Query mechanism
// every other queryable uses, so a client introspects a remote node
// exactly the way it queries any other resource.
type AdminSpace struct {
	tables *Tables
}

// NewAdminSpace builds an AdminSpace bound to tables.
func NewAdminSpace(tables *Tables) *AdminSpace {
	return &AdminSpace{tables: tables}
}

// IsAdminExpr reports whether expr falls under the "@/" admin prefix.
func IsAdminExpr(expr string) bool {
	return strings.HasPrefix(expr, "@/") || expr == "@"
}

type adminFaceInfo struct {
	ID     uint64 `json:"id"`
	ZID    string `json:"zid"`
	Role   string `json:"role"`
	LinkID uint64 `json:"link_id"`
}

type adminRouteInfo struct {
	Expr  string   `json:"expr"`
	Faces []uint64 `json:"faces"`
}

// Answer serves q if its key expression names an admin resource this
// node owns, replying with one JSON-encoded Response and a
// ResponseFinal. It returns false (serving nothing) for any
// non-admin or foreign-zid expression, so callers fall through to
// ordinary queryable routing.
func (a *AdminSpace) Answer(q *Query) bool {
	// Resource tree expressions are absolute ("/@/..."); the admin
	// prefix is matched without the leading slash.
	expr := strings.TrimPrefix(q.KeyExpr.String(), "/")
	if !IsAdminExpr(expr) {
		return false
	}
	zidStr := a.tables.ZID.String()
	switch {
	case strings.HasSuffix(expr, "/faces") && strings.Contains(expr, zidStr):
		a.answerFaces(q)
	case strings.HasSuffix(expr, "/routes") && strings.Contains(expr, zidStr):
		a.answerRoutes(q)
	default:
		return false
	}
	q.Finalize()
	return true
}

func (a *AdminSpace) answerFaces(q *Query) {
	a.tables.mu.RLock()
	faces := make([]adminFaceInfo, 0, len(a.tables.faces))
	for _, f := range a.tables.faces {
		faces = append(faces, adminFaceInfo{ID: f.ID, ZID: f.ZID.String(), Role: f.Role.String(), LinkID: f.LinkID})
	}
	a.tables.mu.RUnlock()

	payload, err := json.Marshal(faces)
	if err != nil {
		return
	}
	q.AddReply(wire.Response{
		RID:     q.QID,
		KeyExpr: wire.WireExpr{Suffix: fmt.Sprintf("@/%s/faces", a.tables.ZID)},
		Payload: wire.Put{Payload: payload, Encoding: "application/json"},
	})
}

func (a *AdminSpace) answerRoutes(q *Query) {
	a.tables.mu.RLock()
	var routes []adminRouteInfo
	a.tables.tree.walk(a.tables.tree.Root(), func(n *ResourceNode) {
		ctx := n.Context()
		if len(ctx.sessions) == 0 {
			return
		}
		ids := make([]uint64, 0, len(ctx.sessions))
		for id := range ctx.sessions {
			ids = append(ids, id)
		}
		routes = append(routes, adminRouteInfo{Expr: n.Expr(), Faces: ids})
	})
	a.tables.mu.RUnlock()

	payload, err := json.Marshal(routes)
	if err != nil {
		return
	}
	q.AddReply(wire.Response{
		RID:     q.QID,
		KeyExpr: wire.WireExpr{Suffix: fmt.Sprintf("@/%s/routes", a.tables.ZID)},
		Payload: wire.Put{Payload: payload, Encoding: "application/json"},
	})
}
