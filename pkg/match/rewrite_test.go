package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteGlob(t *testing.T) {
	tests := []struct {
		glob     string
		expected string
	}{
		{"", ""},
		{"a/*/c", "^a/[^/]*/c$"},
		{"*.csv", `^[^/]*\.csv$`},
		{"exact/file.txt", `^exact/file\.txt$`},
		{"a+b", `^a\+b$`},
	}

	for _, tt := range tests {
		t.Run(tt.glob, func(t *testing.T) {
			assert.Equal(t, tt.expected, RewriteGlob(tt.glob))
		})
	}
}

func TestRewriteGlob_Semantics(t *testing.T) {
	tests := []struct {
		name     string
		glob     string
		key      string
		expected bool
	}{
		{"star within segment", "a/*/c", "a/b/c", true},
		{"star does not cross segments", "a/*/c", "a/b/d/c", false},
		{"star matches empty run", "a/*/c", "a//c", true},
		{"literal dot", "*.csv", "datacsv", false},
		{"suffix star", "data/*", "data/file.txt", true},
		{"anchoring rejects longer keys", "a/b", "a/b/c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(RewriteGlob(tt.glob))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Match(tt.key))
		})
	}
}
