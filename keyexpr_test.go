package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKE(t *testing.T, s string) KeyExpr {
	t.Helper()
	ke, err := ParseKeyExpr(s)
	require.NoError(t, err)
	return ke
}

func TestParseKeyExprRejectsMalformed(t *testing.T) {
	cases := []string{"", "/", "a//b", "a/*b", "a/b*/c", "**foo"}
	for _, c := range cases {
		_, err := ParseKeyExpr(c)
		assert.ErrorIsf(t, err, ErrInvalidKeyExpr, "expected rejection for %q", c)
	}
}

func TestParseKeyExprAcceptsValid(t *testing.T) {
	cases := []string{"a", "/a/b/c", "a/*/c", "**", "a/**", "/test/client/**"}
	for _, c := range cases {
		_, err := ParseKeyExpr(c)
		assert.NoErrorf(t, err, "expected %q to be valid", c)
	}
}

func TestIntersectBasic(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/*/c", "a/x/c", true},
		{"a/*/c", "a/x/d", false},
		{"a/**", "a/b/c/d", true},
		{"a/**", "a", true},
		{"**", "a/b/c", true},
		{"**/c", "a/b/c", true},
		{"a/**/c", "a/c", true},
		{"a/**/c", "a/x/y/c", true},
		{"a/**/**", "a/b", true},
	}
	for _, tt := range tests {
		a, b := mustKE(t, tt.a), mustKE(t, tt.b)
		assert.Equalf(t, tt.want, Intersect(a, b), "Intersect(%s,%s)", tt.a, tt.b)
		assert.Equalf(t, tt.want, Intersect(b, a), "Intersect(%s,%s) should commute", tt.b, tt.a)
	}
}

func TestIncludes(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"a/**", "a/b/c", true},
		{"a/**", "a", true},
		{"a/*", "a/b", true},
		{"a/*", "a/b/c", false},
		{"a/b", "a/b", true},
		{"a/b", "a/c", false},
		{"**", "a/b/c", true},
		{"a/b", "**", false},
		{"a/*", "a/**", false},
	}
	for _, tt := range tests {
		a, b := mustKE(t, tt.a), mustKE(t, tt.b)
		assert.Equalf(t, tt.want, Includes(a, b), "Includes(%s,%s)", tt.a, tt.b)
	}
}

func TestNonWildPrefix(t *testing.T) {
	prefix, suffix := NonWildPrefix(mustKE(t, "/test/client/*/tail"))
	assert.Equal(t, "/test/client", prefix)
	assert.Equal(t, "*/tail", suffix)

	prefix, suffix = NonWildPrefix(mustKE(t, "a/b/c"))
	assert.Equal(t, "a/b/c", prefix)
	assert.Equal(t, "", suffix)
}
