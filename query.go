package fabric

import (
	"context"
	"sync"
	"time"

	"github.com/meshfabric/fabric/wire"
)

// Query is the engine-side bookkeeping for one in-flight get (spec.md
// §4.7): the set of downstream faces it was fanned out to, the
// consolidation state accumulated so far, and the cancellation token
// that bounds its lifetime.
type Query struct {
	QID     uint64
	Origin  *Face // nil: query originated locally (e.g. admin space)
	KeyExpr KeyExpr

	Target        wire.QueryTarget
	Consolidation wire.ConsolidationMode
	Budget        uint64
	Timeout       time.Duration

	ctx      context.Context
	cancelFn context.CancelFunc

	mu          sync.Mutex
	awaiting    map[uint64]struct{} // downstream face ids not yet final
	consolidate *consolidator
	onReply     func(wire.Response)
	onFinal     func()
	finalized   bool
}

// NewQuery builds a Query bound to parent, applying Timeout as a
// deadline on its cancellation context.
func NewQuery(parent context.Context, qid uint64, origin *Face, ke KeyExpr, target wire.QueryTarget, consolidation wire.ConsolidationMode, budget uint64, timeout time.Duration, onReply func(wire.Response), onFinal func()) *Query {
	ctx := parent
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &Query{
		QID:           qid,
		Origin:        origin,
		KeyExpr:       ke,
		Target:        target,
		Consolidation: consolidation,
		Budget:        budget,
		Timeout:       timeout,
		ctx:           ctx,
		cancelFn:      cancel,
		awaiting:      make(map[uint64]struct{}),
		consolidate:   newConsolidator(consolidation),
		onReply:       onReply,
		onFinal:       onFinal,
	}
}

// Context returns the query's cancellation/deadline context.
func (q *Query) Context() context.Context { return q.ctx }

// cancel aborts the query, releasing its timeout timer. Safe to call
// more than once.
func (q *Query) cancel() {
	q.cancelFn()
}

// Fanout registers faceID as a downstream branch this query is still
// awaiting a ResponseFinal from.
func (q *Query) Fanout(faceID uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.awaiting[faceID] = struct{}{}
}

// AddReply folds a partial reply through the consolidation policy,
// forwarding it upstream immediately if the policy allows (None,
// Monotonic) or buffering it for emission at Finalize (Latest).
func (q *Query) AddReply(r wire.Response) {
	q.mu.Lock()
	emit := q.consolidate.offer(r)
	cb := q.onReply
	q.mu.Unlock()
	if emit != nil && cb != nil {
		cb(*emit)
	}
}

// BranchFinal marks faceID's branch as complete and reports whether no
// fanned-out branch is still awaited. It does not call Finalize; the
// caller does so when it returns true.
func (q *Query) BranchFinal(faceID uint64) bool {
	q.mu.Lock()
	delete(q.awaiting, faceID)
	done := len(q.awaiting) == 0
	q.mu.Unlock()
	return done
}

// Finalize flushes any buffered (Latest) replies and invokes onFinal
// exactly once.
func (q *Query) Finalize() {
	q.mu.Lock()
	if q.finalized {
		q.mu.Unlock()
		return
	}
	q.finalized = true
	flushed := q.consolidate.flush()
	cb := q.onReply
	final := q.onFinal
	q.mu.Unlock()

	if cb != nil {
		for _, r := range flushed {
			cb(r)
		}
	}
	q.cancelFn()
	if final != nil {
		final()
	}
}

// consolidator implements the three wire.ConsolidationMode policies
// (spec.md §4.7): None passes every reply through untouched, Monotonic
// passes through but never lets an older-timestamped reply for the
// same key supersede a newer one already emitted, Latest buffers and
// emits only the newest reply per key at Finalize.
type consolidator struct {
	mode   wire.ConsolidationMode
	latest map[string]wire.Response // keyed by KeyExpr suffix
	seenTS map[string]time.Time
}

func newConsolidator(mode wire.ConsolidationMode) *consolidator {
	return &consolidator{
		mode:   mode,
		latest: make(map[string]wire.Response),
		seenTS: make(map[string]time.Time),
	}
}

func tsOf(r wire.Response) time.Time {
	if r.Timestamp == nil {
		return time.Time{}
	}
	return r.Timestamp.Time
}

// offer folds r into the policy, returning a non-nil Response when it
// should be emitted to the origin immediately (None/Monotonic), or nil
// when it was only buffered (Latest).
func (c *consolidator) offer(r wire.Response) *wire.Response {
	key := r.KeyExpr.Suffix
	switch c.mode {
	case wire.ConsolidationNone:
		return &r
	case wire.ConsolidationMonotonic:
		if prev, ok := c.seenTS[key]; ok && !tsOf(r).After(prev) {
			return nil
		}
		c.seenTS[key] = tsOf(r)
		return &r
	default: // ConsolidationLatest
		if prev, ok := c.latest[key]; !ok || tsOf(r).After(tsOf(prev)) {
			c.latest[key] = r
		}
		return nil
	}
}

// flush drains buffered Latest replies in no particular order (the
// origin consolidates a get() result set, which spec.md §4.7 does not
// require ordered).
func (c *consolidator) flush() []wire.Response {
	if len(c.latest) == 0 {
		return nil
	}
	out := make([]wire.Response, 0, len(c.latest))
	for _, r := range c.latest {
		out = append(out, r)
	}
	return out
}
