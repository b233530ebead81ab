package shm

import "encoding/binary"

// Bridge adapts the routing engine's PayloadBody to shared-memory
// buffers: ToShmInfo rewrites an outbound descriptor into the inline
// bytes a Link actually transmits (the descriptor itself is tiny and
// always travels inline, only the payload it points to lives in
// shared memory), and ToShmBuf reverses that on receipt, resolving the
// descriptor into the live mapped buffer (spec.md §4.8).
type Bridge struct {
	readers *ReaderMap
	openFn  func(id [16]byte) (*Segment, error)
}

// NewBridge builds a Bridge that opens unfamiliar segments via openFn
// (wired by the caller to wherever it keeps e.g. a directory of
// segment names it learned out of band).
func NewBridge(openFn func(id [16]byte) (*Segment, error)) *Bridge {
	return &Bridge{readers: NewReaderMap(), openFn: openFn}
}

const descriptorWireSize = 16 + 8 + 8 + 4

// ToShmInfo serializes d into the fixed-size inline descriptor bytes a
// Push/Response payload carries in place of an inline buffer.
func ToShmInfo(d Descriptor) []byte {
	buf := make([]byte, descriptorWireSize)
	copy(buf[0:16], d.SegmentID[:])
	binary.BigEndian.PutUint64(buf[16:24], d.Offset)
	binary.BigEndian.PutUint64(buf[24:32], d.Length)
	binary.BigEndian.PutUint32(buf[32:36], d.Generation)
	return buf
}

// ParseShmInfo is the inverse of ToShmInfo.
func ParseShmInfo(b []byte) (Descriptor, bool) {
	if len(b) != descriptorWireSize {
		return Descriptor{}, false
	}
	var d Descriptor
	copy(d.SegmentID[:], b[0:16])
	d.Offset = binary.BigEndian.Uint64(b[16:24])
	d.Length = binary.BigEndian.Uint64(b[24:32])
	d.Generation = binary.BigEndian.Uint32(b[32:36])
	return d, true
}

// ToShmBuf resolves descriptor bytes received inline into the actual
// shared-memory-backed payload, mapping the segment on first use.
func (b *Bridge) ToShmBuf(info []byte) ([]byte, error) {
	d, ok := ParseShmInfo(info)
	if !ok {
		return nil, ErrSegmentNotFound
	}
	return b.readers.Resolve(d, b.openFn)
}

// Close releases every segment this bridge has mapped.
func (b *Bridge) Close() error {
	return b.readers.Close()
}
