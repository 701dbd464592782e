// Package plan derives S3 listing prefixes and upload keys from
// trigger keys.
//
// The prefix of an execution group decides which subtree of the bucket
// is pulled before the handler runs, and where changed files land when
// they are pushed back.
package plan

import "strings"

// Prefix computes the listing prefix for a trigger key.
//
// The key is split on `/`; the final segment is the basename and the
// rest form the key's folder. parentDirs counts how many additional
// trailing segments to drop from the folder: 0 selects the folder
// itself, larger values climb towards the bucket root, clamping at the
// empty prefix. A negative parentDirs selects the whole bucket.
//
// A non-empty prefix always carries a trailing `/`, so joining it with
// a relative path produces exactly one separator, and the empty prefix
// produces none.
func Prefix(key string, parentDirs int) string {
	if parentDirs < 0 {
		return ""
	}
	segments := strings.Split(key, "/")
	// Basename plus climbed parents
	drop := parentDirs + 1
	if drop >= len(segments) {
		return ""
	}
	return strings.Join(segments[:len(segments)-drop], "/") + "/"
}

// Join appends a relative path to a listing prefix to form an object
// key. Relative paths use `/` separators; Prefix guarantees the single
// separator between the two parts.
func Join(prefix, relativePath string) string {
	return prefix + relativePath
}

// Relative strips the listing prefix from an object key, yielding the
// path of the object below the prefix. Keys outside the prefix are
// returned unchanged.
func Relative(prefix, key string) string {
	return strings.TrimPrefix(key, prefix)
}
