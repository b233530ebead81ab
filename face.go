package fabric

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshfabric/fabric/wire"
)

// TxDispatchPolicy selects how a Face's TX pipeline drains its queue
// onto the Link, matching the environment-variable-selected policy
// named in spec.md §6 (default Sequential; unknown values fall back
// to it).
type TxDispatchPolicy uint8

const (
	TxSequential TxDispatchPolicy = iota
	TxParallel
	TxSpawn
)

// ParseTxDispatchPolicy maps the configuration string to a
// TxDispatchPolicy, defaulting to Sequential for anything unknown.
func ParseTxDispatchPolicy(s string) TxDispatchPolicy {
	switch s {
	case "Parallel":
		return TxParallel
	case "Spawn":
		return TxSpawn
	default:
		return TxSequential
	}
}

const defaultTxQueueCapacity = 256

// Primitives is the outbound-facing capability a Face exposes: the
// engine calls these to hand a message to the remote peer (spec.md
// §4.3). Inbound processing (a message arriving from the peer) goes
// through Dispatch instead.
type Primitives interface {
	DeclareKeyExpr(id uint64, expr string) error
	UndeclareKeyExpr(id uint64)
	DeclareInterest(it *Interest) error
	DeclareSubscriber(id uint64, d wire.DeclareSubscriber)
	UndeclareSubscriber(id uint64, d wire.UndeclareSubscriber)
	DeclareQueryable(id uint64, d wire.DeclareQueryable)
	UndeclareQueryable(id uint64, d wire.UndeclareQueryable)
	SendDeclare(d wire.Declare)
	SendPush(p wire.Push) bool
	SendRequest(r wire.Request) bool
	SendResponse(r wire.Response) bool
	SendResponseFinal(f wire.ResponseFinal)
	Close() error
}

// Face is the engine's handle for one connected peer over one link
// (GLOSSARY). id is unique per process and never reused.
type Face struct {
	ID       uint64
	ZID      ZID
	Role     FaceRole
	LinkID   uint64 // used by the tree scheduler to find broadcast children
	link     Link
	log      *slog.Logger
	txPolicy TxDispatchPolicy

	mapping *exprMapping

	interestsMu sync.Mutex
	interests   map[uint64]*Interest // interests declared BY the peer, open on this face

	pendingMu sync.Mutex
	pending   map[uint64]*Query // queries originated by this face, awaiting replies

	remoteMu   sync.RWMutex
	remoteSubs map[uint64]wire.DeclareSubscriber // peer's declared subs, keyed by declare id
	remoteQbls map[uint64]wire.DeclareQueryable  // peer's declared queryables, keyed by declare id

	ingress *interceptorChain
	egress  *interceptorChain

	txQueue chan Envelope
	closed  atomic.Bool
	closeCh chan struct{}
	closeWG sync.WaitGroup

	tables *Tables // back-reference, for pull-cache lock and metrics
}

// NewFace wires a Face to link and starts its TX pipeline goroutine.
func NewFace(id uint64, zid ZID, role FaceRole, linkID uint64, link Link, log *slog.Logger, policy TxDispatchPolicy) *Face {
	if log == nil {
		log = slog.Default()
	}
	f := &Face{
		ID:         id,
		ZID:        zid,
		Role:       role,
		LinkID:     linkID,
		link:       link,
		log:        log,
		txPolicy:   policy,
		mapping:    newExprMapping(),
		interests:  make(map[uint64]*Interest),
		pending:    make(map[uint64]*Query),
		remoteSubs: make(map[uint64]wire.DeclareSubscriber),
		remoteQbls: make(map[uint64]wire.DeclareQueryable),
		ingress:    newInterceptorChain(nil),
		egress:     newInterceptorChain(nil),
		txQueue:    make(chan Envelope, defaultTxQueueCapacity),
		closeCh:    make(chan struct{}),
	}
	f.closeWG.Add(1)
	go f.txLoop()
	return f
}

// SetInterceptors atomically swaps this face's ingress/egress chains,
// used when the interceptor factory list changes (spec.md §4.3).
func (f *Face) SetInterceptors(ingress, egress []Interceptor) {
	f.ingress.Swap(ingress)
	f.egress.Swap(egress)
}

func (f *Face) txLoop() {
	defer f.closeWG.Done()
	for {
		select {
		case env := <-f.txQueue:
			f.dispatchTx(env)
		case <-f.closeCh:
			f.drainTx()
			return
		}
	}
}

// drainTx flushes whatever is already buffered in txQueue without
// blocking, called once on the way out of txLoop so a close doesn't
// discard sends that were already accepted (spec.md §5 "reliable
// channel" drain guarantee).
func (f *Face) drainTx() {
	for {
		select {
		case env := <-f.txQueue:
			f.dispatchTx(env)
		default:
			return
		}
	}
}

func (f *Face) dispatchTx(env Envelope) {
	switch f.txPolicy {
	case TxSpawn:
		go f.send(env)
	case TxParallel:
		// Parallel sends inline on the TX goroutine, exactly like
		// Sequential, so per-face ordering on a single link is kept
		// (spec.md §5); no worker pool is involved.
		f.send(env)
	default: // TxSequential
		f.send(env)
	}
}

func (f *Face) send(env Envelope) {
	if !f.link.SendBatch([]Envelope{env}) {
		f.log.Warn("link back pressure, batch dropped", "face_id", f.ID)
	}
}

// enqueue pushes env onto the TX queue, honoring congestionDrop for
// back-pressure handling (spec.md §5/§7 BackPressureDropped).
func (f *Face) enqueue(env Envelope, congestionDrop bool) bool {
	if f.closed.Load() {
		return false
	}
	select {
	case f.txQueue <- env:
		return true
	default:
	}
	if congestionDrop {
		return false
	}
	// Reliable channel: block until there is room or the face closes.
	// f.txQueue is never closed (only f.closeCh is), so this send can
	// never race a channel close into a panic.
	select {
	case f.txQueue <- env:
		return true
	case <-f.closeCh:
		return false
	}
}

func (f *Face) DeclareKeyExpr(id uint64, expr string) error {
	// No-op: expr is not resolved to a ResourceNode and no id mapping
	// is recorded here; it always returns nil.
	return nil
}

func (f *Face) UndeclareKeyExpr(id uint64) {
	f.mapping.Undeclare(MappingSender, id)
}

func (f *Face) DeclareInterest(it *Interest) error {
	f.interestsMu.Lock()
	f.interests[it.ID] = it
	f.interestsMu.Unlock()
	return nil
}

func (f *Face) finalizeInterest(id uint64) {
	f.interestsMu.Lock()
	delete(f.interests, id)
	f.interestsMu.Unlock()
}

func (f *Face) DeclareSubscriber(id uint64, d wire.DeclareSubscriber) {
	f.remoteMu.Lock()
	f.remoteSubs[id] = d
	f.remoteMu.Unlock()
}

func (f *Face) UndeclareSubscriber(id uint64, _ wire.UndeclareSubscriber) {
	f.remoteMu.Lock()
	delete(f.remoteSubs, id)
	f.remoteMu.Unlock()
}

func (f *Face) DeclareQueryable(id uint64, d wire.DeclareQueryable) {
	f.remoteMu.Lock()
	f.remoteQbls[id] = d
	f.remoteMu.Unlock()
}

func (f *Face) UndeclareQueryable(id uint64, _ wire.UndeclareQueryable) {
	f.remoteMu.Lock()
	delete(f.remoteQbls, id)
	f.remoteMu.Unlock()
}

func (f *Face) SendDeclare(d wire.Declare) {
	f.enqueue(Envelope{Declare: &d}, false)
}

func (f *Face) SendPush(p wire.Push) bool {
	return f.enqueue(Envelope{Push: &p}, p.QoS.CongestionDrop)
}

func (f *Face) SendRequest(r wire.Request) bool {
	return f.enqueue(Envelope{Request: &r}, false)
}

func (f *Face) SendResponse(r wire.Response) bool {
	return f.enqueue(Envelope{Response: &r}, false)
}

func (f *Face) SendResponseFinal(ff wire.ResponseFinal) {
	f.enqueue(Envelope{ResponseFinal: &ff}, false)
}

// trackQuery registers a query this face originated so Close can
// cancel it. Replies from downstream faces are matched to the query by
// the Dispatcher's own query-id table, not through this map.
func (f *Face) trackQuery(q *Query) {
	f.pendingMu.Lock()
	f.pending[q.QID] = q
	f.pendingMu.Unlock()
}

func (f *Face) untrackQuery(qid uint64) {
	f.pendingMu.Lock()
	delete(f.pending, qid)
	f.pendingMu.Unlock()
}

func (f *Face) lookupQuery(qid uint64) (*Query, bool) {
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	q, ok := f.pending[qid]
	return q, ok
}

// FaceCloseGrace bounds how long in-flight tasks get to finish before
// a closing face's state is reaped (spec.md §5).
const FaceCloseGrace = 10 * time.Second

// Close releases every resource this face holds: it cancels all
// queries it originated, closes the underlying link, and stops the TX
// loop, waiting up to FaceCloseGrace for in-flight sends to drain.
// Close is idempotent.
func (f *Face) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	f.pendingMu.Lock()
	pending := make([]*Query, 0, len(f.pending))
	for _, q := range f.pending {
		pending = append(pending, q)
	}
	f.pending = make(map[uint64]*Query)
	f.pendingMu.Unlock()
	for _, q := range pending {
		q.cancel()
	}

	close(f.closeCh)
	done := make(chan struct{})
	go func() { f.closeWG.Wait(); close(done) }()
	ctx, cancel := context.WithTimeout(context.Background(), FaceCloseGrace)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		f.log.Warn("face close grace period elapsed with tasks still draining", "face_id", f.ID)
	}

	return f.link.Close()
}
