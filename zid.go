package fabric

import "github.com/google/uuid"

// ZID is a process-unique identifier for a participating node. It is
// generated with a random UUIDv4, grounded on the same
// github.com/google/uuid dependency the reference corpus uses for
// agent/session identifiers.
type ZID [16]byte

// NewZID generates a fresh random ZID.
func NewZID() ZID {
	return ZID(uuid.New())
}

// String renders the ZID in canonical UUID form.
func (z ZID) String() string {
	return uuid.UUID(z).String()
}

// Less gives ZIDs a total, byte-lexicographic order, used to break
// ties deterministically in master election (spec.md §4.4) and in
// Complete(n) query-target ordering (DESIGN.md open question).
func (z ZID) Less(other ZID) bool {
	for i := range z {
		if z[i] != other[i] {
			return z[i] < other[i]
		}
	}
	return false
}

// ParseZID parses a canonical UUID string into a ZID.
func ParseZID(s string) (ZID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ZID{}, err
	}
	return ZID(u), nil
}
