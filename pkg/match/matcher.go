// Package match evaluates key patterns against S3 object keys.
//
// Two matchers exist: the trigger Matcher gates which event keys start
// an invocation at all, and the KeyFilter selects which listed objects
// get pulled to local disk. Both use the regex dialect; the legacy
// glob dialect is supported through an explicit rewrite (RewriteGlob).
package match

import (
	"errors"
	"regexp"
)

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid key pattern")

// PatternError wraps pattern-related errors with the offending pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher evaluates the trigger-key pattern against object keys.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	re  *regexp.Regexp
	raw string
}

// New compiles a trigger-key matcher from a regex pattern.
//
// An empty pattern matches every key. Compilation failures surface at
// construction so a bad pattern is a startup error, not a per-event one.
func New(pattern string) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: ErrInvalidPattern}
	}
	return &Matcher{re: re, raw: pattern}, nil
}

// Match returns true if the key matches the configured pattern.
func (m *Matcher) Match(key string) bool {
	return m.re.MatchString(key)
}

// Pattern returns the raw pattern the matcher was built from.
func (m *Matcher) Pattern() string {
	return m.raw
}

// KeyFilter selects which listed objects are pulled, using a list of
// regex patterns with OR semantics.
//
// The KeyFilter is safe for concurrent use after creation.
type KeyFilter struct {
	res  []*regexp.Regexp
	raws []string
}

// NewKeyFilter compiles a pull-key filter from regex patterns.
//
// An empty or nil list accepts every key, as does any empty pattern in
// the list.
func NewKeyFilter(patterns []string) (*KeyFilter, error) {
	if len(patterns) == 0 {
		patterns = []string{""}
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		res = append(res, re)
	}
	return &KeyFilter{res: res, raws: patterns}, nil
}

// Match returns true if the key matches at least one pattern.
func (f *KeyFilter) Match(key string) bool {
	for _, re := range f.res {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// Patterns returns the raw patterns the filter was built from.
func (f *KeyFilter) Patterns() []string {
	return f.raws
}
