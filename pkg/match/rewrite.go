package match

import "strings"

// RewriteGlob converts a pattern in the legacy glob dialect to an
// anchored regex in the current dialect.
//
// In the glob dialect the only metacharacter is `*`, which matches any
// run of characters excluding `/`. Everything else is literal, so all
// regex metacharacters are escaped and `*` becomes `[^/]*`. The result
// is anchored at both ends.
//
// Examples:
//
//	"a/*/c"     → "^a/[^/]*/c$"
//	"*.csv"     → "^[^/]*\.csv$"
//	""          → "" (matches any key, same as the glob)
//
// The rewrite is a migration helper for configurations written against
// older releases; it is not applied automatically at runtime.
func RewriteGlob(glob string) string {
	if glob == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(glob) + 8)
	b.WriteByte('^')
	for _, r := range glob {
		if r == '*' {
			b.WriteString("[^/]*")
			continue
		}
		if strings.ContainsRune(`\.+()|[]{}^$?`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('$')
	return b.String()
}
