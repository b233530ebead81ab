package fabric

import (
	"fmt"
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
)

// KeyExpr is an immutable key expression: a `/`-separated sequence of
// segments where a segment may be a literal, the single-segment
// wildcard "*", or the multi-segment wildcard "**". KeyExpr values
// are always grammar-valid; construct one with ParseKeyExpr.
type KeyExpr struct {
	raw      string
	absolute bool
}

// ParseKeyExpr validates expr against the key-expression grammar and
// returns the corresponding KeyExpr. It rejects the empty string,
// doubled slashes (empty segments), and any segment that mixes a
// wildcard marker with other bytes.
func ParseKeyExpr(expr string) (KeyExpr, error) {
	if expr == "" {
		return KeyExpr{}, fmt.Errorf("%w: empty expression", ErrInvalidKeyExpr)
	}
	absolute := strings.HasPrefix(expr, "/")
	body := expr
	if absolute {
		body = expr[1:]
	}
	if body == "" {
		return KeyExpr{}, fmt.Errorf("%w: %q has no segments", ErrInvalidKeyExpr, expr)
	}
	for _, seg := range strings.Split(body, "/") {
		if err := validateSegment(seg); err != nil {
			return KeyExpr{}, fmt.Errorf("%w: %q: %s", ErrInvalidKeyExpr, expr, err)
		}
	}
	return KeyExpr{raw: expr, absolute: absolute}, nil
}

func validateSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("empty segment (double slash)")
	}
	if seg == "*" || seg == "**" {
		return nil
	}
	if strings.Contains(seg, "*") {
		return fmt.Errorf("segment %q mixes a wildcard with other characters", seg)
	}
	return nil
}

// String returns the original expression text.
func (k KeyExpr) String() string { return k.raw }

// IsAbsolute reports whether the expression begins with '/'.
func (k KeyExpr) IsAbsolute() bool { return k.absolute }

func (k KeyExpr) segments() []string {
	body := k.raw
	if k.absolute {
		body = body[1:]
	}
	return strings.Split(body, "/")
}

// Intersect reports whether the set of concrete keys matching a and
// the set matching b share at least one element. The result does not
// depend on argument order (I1/I3).
func Intersect(a, b KeyExpr) bool {
	memo := make(map[[2]int]bool)
	return intersectSegs(a.segments(), b.segments(), memo)
}

// Includes reports whether every concrete key matching b also matches
// a, i.e. b's language is a subset of a's (B ⊆ A).
func Includes(a, b KeyExpr) bool {
	return includesSegs(a.segments(), b.segments())
}

// NonWildPrefix splits e into the longest wildcard-free leading
// segment run and the remaining suffix starting at the first
// wildcard segment (or the empty suffix if e has none). The prefix is
// interned as a resource; the suffix travels on the wire.
func NonWildPrefix(e KeyExpr) (prefix, suffix string) {
	segs := e.segments()
	idx := len(segs)
	for i, s := range segs {
		if s == "*" || s == "**" {
			idx = i
			break
		}
	}
	prefixSegs, suffixSegs := segs[:idx], segs[idx:]
	prefix = joinSegs(prefixSegs, e.absolute)
	if len(suffixSegs) == 0 {
		return prefix, ""
	}
	suffix = strings.Join(suffixSegs, "/")
	return prefix, suffix
}

func joinSegs(segs []string, absolute bool) string {
	s := strings.Join(segs, "/")
	if absolute {
		return "/" + s
	}
	return s
}

// segMatch reports whether two grammar-valid segments (literal or the
// single-segment wildcard "*") denote overlapping sets. Literal
// comparison is delegated to the wildcard matcher: since a validated
// segment never embeds a partial wildcard, Match degenerates to exact
// comparison for literals while still giving "*" its any-value
// semantics for free.
func segMatch(a, b string) bool {
	if a == "*" || b == "*" {
		return true
	}
	return wildcard.Match(a, b)
}

func intersectSegs(a, b []string, memo map[[2]int]bool) bool {
	return intersectFrom(a, b, 0, 0, memo)
}

func intersectFrom(a, b []string, ai, bi int, memo map[[2]int]bool) bool {
	key := [2]int{ai, bi}
	if v, ok := memo[key]; ok {
		return v
	}
	res := intersectUncached(a, b, ai, bi, memo)
	memo[key] = res
	return res
}

func intersectUncached(a, b []string, ai, bi int, memo map[[2]int]bool) bool {
	aEnd, bEnd := ai >= len(a), bi >= len(b)
	if aEnd && bEnd {
		return true
	}
	if aEnd {
		return allStarStar(b[bi:])
	}
	if bEnd {
		return allStarStar(a[ai:])
	}
	if a[ai] == "**" {
		for k := bi; k <= len(b); k++ {
			if intersectFrom(a, b, ai+1, k, memo) {
				return true
			}
		}
		return false
	}
	if b[bi] == "**" {
		for k := ai; k <= len(a); k++ {
			if intersectFrom(a, b, k, bi+1, memo) {
				return true
			}
		}
		return false
	}
	if !segMatch(a[ai], b[bi]) {
		return false
	}
	return intersectFrom(a, b, ai+1, bi+1, memo)
}

func allStarStar(segs []string) bool {
	for _, s := range segs {
		if s != "**" {
			return false
		}
	}
	return true
}

// includesSegs reports whether the language of b (segments) is a
// subset of the language of a (segments): B ⊆ A.
func includesSegs(a, b []string) bool {
	switch {
	case len(a) == 0 && len(b) == 0:
		return true
	case len(a) == 0:
		return false
	case len(b) == 0:
		if a[0] == "**" {
			return includesSegs(a[1:], b)
		}
		return false
	}

	if a[0] == "**" {
		// ** absorbs zero segments, or absorbs one more of b and keeps
		// trying (it remains available for further absorption).
		return includesSegs(a[1:], b) || includesSegs(a, b[1:])
	}
	if b[0] == "**" {
		// A has no matching unbounded absorber at this position, so it
		// cannot cover every expansion of b's "**" except the trivial
		// (zero-segment) one.
		return false
	}
	if a[0] == "*" {
		return includesSegs(a[1:], b[1:])
	}
	if b[0] == "*" {
		// b's "*" ranges over every concrete single segment; a literal
		// cannot cover all of them.
		return false
	}
	if a[0] != b[0] {
		return false
	}
	return includesSegs(a[1:], b[1:])
}
