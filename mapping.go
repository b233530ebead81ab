package fabric

import (
	"fmt"
	"sync"
)

// exprMapping holds one face's local and remote key-expression id
// tables (spec.md §4.3's "mapping discipline"). The two tables are
// always disjoint on the wire via the Mapping tag on WireExpr, so
// they are stored separately rather than merged into one map.
type exprMapping struct {
	mu     sync.RWMutex
	local  map[uint64]*ResourceNode // ids we assigned to prefixes we declared to the peer
	remote map[uint64]*ResourceNode // ids the peer assigned
}

func newExprMapping() *exprMapping {
	return &exprMapping{
		local:  make(map[uint64]*ResourceNode),
		remote: make(map[uint64]*ResourceNode),
	}
}

func (m *exprMapping) table(side Mapping) map[uint64]*ResourceNode {
	if side == MappingReceiver {
		return m.remote
	}
	return m.local
}

// Declare registers id -> node on the given side. Reusing an id
// already mapped to a different node on the same side is rejected
// per spec.md §3's SessionContext/WireExpr invariants.
func (m *exprMapping) Declare(side Mapping, id uint64, node *ResourceNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(side)
	if existing, ok := t[id]; ok && existing != node {
		return fmt.Errorf("%w: id %d already maps to %q on %s side", ErrRemappingConflict, id, existing.Expr(), side)
	}
	t[id] = node
	return nil
}

// Undeclare removes id from the given side's table. In-flight
// messages already holding a resolved *ResourceNode are unaffected;
// they simply stop being able to re-resolve the id afterwards.
func (m *exprMapping) Undeclare(side Mapping, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table(side), id)
}

// Resolve looks up id on the given side.
func (m *exprMapping) Resolve(side Mapping, id uint64) (*ResourceNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.table(side)[id]
	return n, ok
}

// NextLocalID returns the lowest positive integer not present in
// either table, guaranteeing uniqueness within this face regardless
// of which side assigned which ids.
func (m *exprMapping) NextLocalID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id := uint64(1); ; id++ {
		if _, ok := m.local[id]; ok {
			continue
		}
		if _, ok := m.remote[id]; ok {
			continue
		}
		return id
	}
}

// LocalIDFor returns the id previously assigned (if any) to node on
// the local side, for get_best_key-style wire compression.
func (m *exprMapping) LocalIDFor(node *ResourceNode) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, n := range m.local {
		if n == node {
			return id, true
		}
	}
	return 0, false
}
