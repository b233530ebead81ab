//go:build unix

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Segment is a process's mapping of one POSIX shared-memory object,
// opened once and sliced per-buffer by (Offset, Length) from a
// Descriptor.
type Segment struct {
	id   [16]byte
	file *os.File
	data []byte
}

// shmDir is where POSIX shared-memory objects are exposed as regular
// files on Linux, avoiding a cgo dependency on shm_open(3).
const shmDir = "/dev/shm/"

func shmPath(name string) string { return shmDir + name }

// OpenSegment opens (creating if create is true) the named POSIX
// shared-memory object and maps size bytes of it, mirroring
// zenoh-shm's PosixShmSegment::create/open split.
func OpenSegment(id [16]byte, name string, size int, create bool) (*Segment, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(shmPath(name), flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	if create {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, fmt.Errorf("ftruncate %q: %w", name, err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmap %q: %w", name, err)
	}

	return &Segment{id: id, file: file, data: data}, nil
}

// Slice returns the byte range [offset, offset+length) of the mapped
// segment, bounds-checked against the mapping's size.
func (s *Segment) Slice(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end > uint64(len(s.data)) || end < offset {
		return nil, fmt.Errorf("shm: range [%d,%d) out of bounds for %d-byte segment", offset, end, len(s.data))
	}
	return s.data[offset:end], nil
}

// Close unmaps and closes the segment's file descriptor. It does not
// unlink the POSIX shared-memory object; segment lifetime/ownership is
// the writer's responsibility via Unlink.
func (s *Segment) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	return s.file.Close()
}

// Unlink removes the named POSIX shared-memory object so no new
// process can open it; existing mappings remain valid until closed.
func Unlink(name string) error {
	return os.Remove(shmPath(name))
}
