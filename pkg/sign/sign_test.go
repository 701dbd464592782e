package sign

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestTake(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	writeFile(t, root, "sub/b.txt", "world")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty-dir"), 0o755))

	snapshot, err := Take(root)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	a := snapshot["a.txt"]
	assert.Equal(t, "a.txt", a.RelativePath)
	assert.True(t, a.Present)
	assert.EqualValues(t, 5, a.Size)
	assert.NotEmpty(t, a.Hash)

	b := snapshot["sub/b.txt"]
	assert.Equal(t, "sub/b.txt", b.RelativePath)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestTake_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x/1.bin", "one")
	writeFile(t, root, "y/2.bin", "two")

	first, err := Take(root)
	require.NoError(t, err)
	second, err := Take(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTake_IgnoresSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, root, "real.txt", "content")
	require.NoError(t, os.Symlink(
		filepath.Join(root, "real.txt"),
		filepath.Join(root, "link.txt")))

	snapshot, err := Take(root)
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
	assert.Contains(t, snapshot, "real.txt")
}

func TestChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "unchanged")
	writeFile(t, root, "edit.txt", "v1")
	writeFile(t, root, "drop.txt", "going away")

	before, err := Take(root)
	require.NoError(t, err)

	writeFile(t, root, "edit.txt", "v2")
	writeFile(t, root, "new.txt", "fresh")
	require.NoError(t, os.Remove(filepath.Join(root, "drop.txt")))

	after, err := Take(root)
	require.NoError(t, err)

	changes := Changes(before, after)
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.RelativePath
	}
	// Sorted; unchanged files are absent, and so are deletions.
	assert.Equal(t, []string{"edit.txt", "new.txt"}, paths)
}

func TestChanges_NoOp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "same")
	writeFile(t, root, "deep/b.txt", "same too")

	before, err := Take(root)
	require.NoError(t, err)
	after, err := Take(root)
	require.NoError(t, err)

	assert.Empty(t, Changes(before, after))
}

func TestChanges_ByteForByteCopy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "input.dat", "payload")

	before, err := Take(root)
	require.NoError(t, err)

	// Copying every input to a new filename uploads exactly the
	// copies, never the originals.
	writeFile(t, root, "copy.dat", "payload")
	after, err := Take(root)
	require.NoError(t, err)

	changes := Changes(before, after)
	require.Len(t, changes, 1)
	assert.Equal(t, "copy.dat", changes[0].RelativePath)
	assert.Equal(t, after["input.dat"].Hash, changes[0].Hash)
}

func TestTake_EmptyRoot(t *testing.T) {
	snapshot, err := Take(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}
