// Package sign compares the state of a directory tree before and
// after a handler run, in terms of the regular files it contains.
package sign

import (
	"crypto/sha1"
	"encoding/base64"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Signature identifies the content of one regular file below a root.
// Two signatures are equal when relative path, hash and presence all
// match.
type Signature struct {
	RelativePath string
	Hash         string
	Size         int64
	Present      bool
}

// Snapshot maps relative paths to their signatures.
type Snapshot map[string]Signature

// Take walks root in lexicographic order and signs every regular
// file. Symbolic links are not followed; directories are not signed.
func Take(root string) (Snapshot, error) {
	snapshot := make(Snapshot)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		hash, size, err := hashFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		snapshot[rel] = Signature{
			RelativePath: rel,
			Hash:         hash,
			Size:         size,
			Present:      true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Changes returns the signatures present in after that before lacks or
// holds with a different hash, sorted by relative path. Files present
// only in before are not reported; deletions do not propagate.
func Changes(before, after Snapshot) []Signature {
	var changes []Signature
	for rel, sig := range after {
		prior, ok := before[rel]
		if ok && prior.Hash == sig.Hash {
			continue
		}
		changes = append(changes, sig)
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].RelativePath < changes[j].RelativePath
	})
	return changes
}

// hashFile produces the base64-encoded 160-bit content digest of a
// file.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hasher := sha1.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), size, nil
}
