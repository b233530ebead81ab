package fabric

import "errors"

// Error kinds, one per row of the error-handling table. Each is a
// sentinel so callers can discriminate with errors.Is; concrete
// occurrences are wrapped with fmt.Errorf("%w: ...") for context,
// following the same pattern the teacher uses for its own route
// errors.
var (
	// ErrInvalidKeyExpr is returned when a key-expression violates the
	// grammar (double slash, empty segment, a wildcard segment mixed
	// with other bytes). The operation is rejected at the boundary and
	// never reaches the resource tree.
	ErrInvalidKeyExpr = errors.New("fabric: invalid key expression")

	// ErrUnknownPrefix names a WireExpr that references a scope id
	// never declared on the indicated mapping side. Nothing in this
	// package returns it: resolveWire reports false and the message is
	// dropped.
	ErrUnknownPrefix = errors.New("fabric: unknown wire expression prefix")

	// ErrRemappingConflict is returned when declare-keyexpr reuses an
	// id already mapped to a different expression on the same side.
	ErrRemappingConflict = errors.New("fabric: key expression id remapping conflict")

	// ErrLinkClosed names a failed or closed underlying Link. Nothing in
	// this package returns it: Face send methods report false instead.
	ErrLinkClosed = errors.New("fabric: link closed")

	// ErrQueryTimeout marks a query whose deadline elapsed before every
	// target replied Final.
	ErrQueryTimeout = errors.New("fabric: query timed out")

	// ErrBackPressure names a sample dropped because a BestEffort
	// channel's TX queue was full. Nothing in this package returns it:
	// Face.SendPush reports false for a dropped sample.
	ErrBackPressure = errors.New("fabric: back pressure, message dropped")

	// ErrShmDescriptorInvalid names an SHM extension descriptor that
	// cannot be parsed or whose segment cannot be resolved. Nothing
	// returns it; the shm package reports its own errors.
	ErrShmDescriptorInvalid = errors.New("fabric: invalid shared-memory descriptor")

	// ErrInterceptorRejected marks a message an interceptor vetoed.
	ErrInterceptorRejected = errors.New("fabric: message rejected by interceptor")

	// ErrFaceClosed is returned by Tables.RemoveFace for a face id that
	// is not in the table (never added, or already removed).
	ErrFaceClosed = errors.New("fabric: face closed")

	// ErrUnknownRole names a node role with no Hat strategy. Nothing
	// returns it: NewTables takes a Hat value directly.
	ErrUnknownRole = errors.New("fabric: unknown node role")
)
