// Package shm implements the shared-memory payload bridge (spec.md
// §4.8): a Push/Response payload can carry a shared-memory buffer
// descriptor instead of an inline byte slice, and a receiving process
// on the same host maps the segment instead of copying bytes over the
// Link. Grounded on zenoh-shm's posix_shared_memory_segment.rs for the
// descriptor/segment shape, adapted to Go's mmap via golang.org/x/sys.
package shm

import "fmt"

// Descriptor is the wire-level shared-memory buffer reference: enough
// information for a receiver to open and map the same segment the
// sender wrote into.
type Descriptor struct {
	SegmentID [16]byte
	Offset    uint64
	Length    uint64
	// Generation increments each time the writer reuses this segment
	// slot for a new buffer, so a stale reader can detect it mapped a
	// buffer that has since been overwritten (spec.md §4.8 "SHM
	// generation check").
	Generation uint32
}

// String renders a Descriptor for logs without dumping the raw
// segment id bytes.
func (d Descriptor) String() string {
	return fmt.Sprintf("shm(seg=%x off=%d len=%d gen=%d)", d.SegmentID[:4], d.Offset, d.Length, d.Generation)
}

// ErrGenerationMismatch is returned by a ReaderMap lookup when a
// mapped segment's generation counter no longer matches the
// descriptor's, i.e. the buffer was recycled before the reader caught
// up.
var ErrGenerationMismatch = fmt.Errorf("shm: generation mismatch, buffer was recycled")

// ErrSegmentNotFound is returned when a descriptor names a segment id
// this process has no mapping for and cannot open (e.g. it arrived
// over a Link the sender marked as not SHM-capable).
var ErrSegmentNotFound = fmt.Errorf("shm: segment not found")
