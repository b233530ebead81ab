package fabric

import (
	"strings"
	"testing"

	"github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

// randomExpr builds a grammar-valid expression out of a small alphabet
// of segments so that gofuzz-driven runs exercise the wildcard
// handling paths (literal, "*", "**") rather than producing mostly
// malformed strings that ParseKeyExpr would reject outright.
func randomExpr(f *fuzz.Fuzzer) string {
	alphabet := []string{"a", "b", "c", "*", "**"}
	var n int
	f.Fuzz(&n)
	segCount := (n%4 + 1)
	segs := make([]string, 0, segCount)
	for i := 0; i < segCount; i++ {
		var idx int
		f.Fuzz(&idx)
		segs = append(segs, alphabet[idx%len(alphabet)])
	}
	return strings.Join(segs, "/")
}

// TestFuzzIntersectCommutes checks I1's order-independence requirement:
// Intersect(A,B) must equal Intersect(B,A) for any pair of
// grammar-valid expressions, mirroring how the teacher fuzzes route
// pattern registration with gofuzz-generated inputs.
func TestFuzzIntersectCommutes(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 500; i++ {
		as, bs := randomExpr(f), randomExpr(f)
		a, err := ParseKeyExpr(as)
		require.NoError(t, err)
		b, err := ParseKeyExpr(bs)
		require.NoError(t, err)
		require.Equalf(t, Intersect(a, b), Intersect(b, a), "Intersect(%s,%s) != Intersect(%s,%s)", as, bs, bs, as)
	}
}

// TestFuzzIncludesReflexive checks that every expression includes itself.
func TestFuzzIncludesReflexive(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 500; i++ {
		s := randomExpr(f)
		ke, err := ParseKeyExpr(s)
		require.NoError(t, err)
		require.Truef(t, Includes(ke, ke), "expected %s to include itself", s)
	}
}
