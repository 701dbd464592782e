package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"empty pattern", "", false},
		{"simple regex", `\.csv$`, false},
		{"anchored regex", "^data/", false},
		{"invalid regex", "([unclosed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPattern))
				var patternErr *PatternError
				assert.True(t, errors.As(err, &patternErr))
				assert.Nil(t, m)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, m)
				assert.Equal(t, tt.pattern, m.Pattern())
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		key      string
		expected bool
	}{
		{"empty pattern matches anything", "", "any/key/at/all.txt", true},
		{"match-all pattern", ".*", "some/key", true},
		{"suffix match", `\.csv$`, "data/input.csv", true},
		{"suffix no match", `\.csv$`, "data/input.json", false},
		{"unanchored substring", "incoming/", "bucket/incoming/file", true},
		{"anchored miss", "^incoming/", "bucket/incoming/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Match(tt.key))
		})
	}
}

func TestNewKeyFilter(t *testing.T) {
	t.Run("invalid pattern in list", func(t *testing.T) {
		f, err := NewKeyFilter([]string{".*", "([bad"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPattern))
		assert.Nil(t, f)
	})

	t.Run("nil list matches everything", func(t *testing.T) {
		f, err := NewKeyFilter(nil)
		require.NoError(t, err)
		assert.True(t, f.Match("anything"))
		assert.True(t, f.Match(""))
	})
}

func TestKeyFilter_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		key      string
		expected bool
	}{
		{"single pattern hit", []string{`\.txt$`}, "a/b.txt", true},
		{"single pattern miss", []string{`\.txt$`}, "a/b.csv", false},
		{"any of several", []string{`\.txt$`, `\.csv$`}, "a/b.csv", true},
		{"none of several", []string{`\.txt$`, `\.csv$`}, "a/b.json", false},
		{"empty pattern in list accepts all", []string{""}, "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewKeyFilter(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Match(tt.key))
		})
	}
}
