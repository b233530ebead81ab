package shm

import (
	"fmt"
	"sync"
)

// ReaderMap caches one mapped Segment per segment id for the lifetime
// of the process, so repeated descriptors naming the same segment
// (the common case: a publisher reuses a ring of buffers) don't
// re-open/re-mmap on every message.
type ReaderMap struct {
	mu       sync.RWMutex
	segments map[[16]byte]*Segment
	// generation tracks the last generation this process observed
	// reads from, per segment, to detect recycled buffers.
	generation map[[16]byte]uint32
}

// NewReaderMap returns an empty ReaderMap.
func NewReaderMap() *ReaderMap {
	return &ReaderMap{
		segments:   make(map[[16]byte]*Segment),
		generation: make(map[[16]byte]uint32),
	}
}

// Track registers an already-opened segment under its id, replacing
// any previous mapping for the same id (the writer closed and
// reopened the backing object under a new size, for instance).
func (r *ReaderMap) Track(seg *Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.segments[seg.id]; ok && old != seg {
		old.Close()
	}
	r.segments[seg.id] = seg
}

// Resolve maps a Descriptor to the live byte slice it names, opening
// the segment on first use via openFn if this process hasn't mapped it
// yet, and rejecting reads against a generation the writer has since
// recycled.
func (r *ReaderMap) Resolve(d Descriptor, openFn func(id [16]byte) (*Segment, error)) ([]byte, error) {
	r.mu.RLock()
	seg, ok := r.segments[d.SegmentID]
	lastGen, genOK := r.generation[d.SegmentID]
	r.mu.RUnlock()

	if genOK && d.Generation < lastGen {
		return nil, ErrGenerationMismatch
	}

	if !ok {
		var err error
		seg, err = openFn(d.SegmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
		}
		r.Track(seg)
	}

	r.mu.Lock()
	if d.Generation > r.generation[d.SegmentID] {
		r.generation[d.SegmentID] = d.Generation
	}
	r.mu.Unlock()

	return seg.Slice(d.Offset, d.Length)
}

// Close unmaps every tracked segment.
func (r *ReaderMap) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for id, seg := range r.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.segments, id)
	}
	return firstErr
}
