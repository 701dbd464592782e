package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("handler tests use POSIX shell syntax")
	}
}

func TestNew(t *testing.T) {
	r, err := New(Config{})
	assert.Error(t, err)
	assert.Nil(t, r)

	r, err = New(Config{Command: "true", RootFolderVar: "ROOT_FOLDER", BucketVar: "BUCKET", KeyPrefixVar: "KEY_PREFIX"})
	require.NoError(t, err)
	assert.Equal(t, "true", r.Command())
}

func TestRunner_Run_Success(t *testing.T) {
	skipOnWindows(t)

	r, err := New(Config{Command: "true", RootFolderVar: "ROOT_FOLDER", BucketVar: "BUCKET", KeyPrefixVar: "KEY_PREFIX"})
	require.NoError(t, err)
	assert.NoError(t, r.Run(context.Background(), t.TempDir(), "bucket", "prefix/"))
}

func TestRunner_Run_ExitStatus(t *testing.T) {
	skipOnWindows(t)

	r, err := New(Config{Command: "exit 2", RootFolderVar: "ROOT_FOLDER", BucketVar: "BUCKET", KeyPrefixVar: "KEY_PREFIX"})
	require.NoError(t, err)

	err = r.Run(context.Background(), t.TempDir(), "bucket", "prefix/")
	var exitErr *ExitStatusError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRunner_Run_Environment(t *testing.T) {
	skipOnWindows(t)

	root := t.TempDir()
	r, err := New(Config{
		Command:       `printf '%s\n%s\n%s\n' "$THE_ROOT" "$THE_BUCKET" "$THE_PREFIX" > "$THE_ROOT/env.txt"`,
		RootFolderVar: "THE_ROOT",
		BucketVar:     "THE_BUCKET",
		KeyPrefixVar:  "THE_PREFIX",
	})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), root, "the-bucket", "a/b/"))

	content, err := os.ReadFile(filepath.Join(root, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, root+"\nthe-bucket\na/b/\n", string(content))
}

func TestRunner_Run_ShellFeatures(t *testing.T) {
	skipOnWindows(t)

	root := t.TempDir()
	r, err := New(Config{
		Command:       `echo one > "$ROOT/1.txt" && echo two > "$ROOT/2.txt"`,
		RootFolderVar: "ROOT",
		BucketVar:     "BUCKET",
		KeyPrefixVar:  "KEY_PREFIX",
	})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), root, "b", ""))

	assert.FileExists(t, filepath.Join(root, "1.txt"))
	assert.FileExists(t, filepath.Join(root, "2.txt"))
}

func TestRunner_Run_Cancellation(t *testing.T) {
	skipOnWindows(t)

	r, err := New(Config{
		Command:        "sleep 30",
		RootFolderVar:  "ROOT_FOLDER",
		BucketVar:      "BUCKET",
		KeyPrefixVar:   "KEY_PREFIX",
		TerminateGrace: 2 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, t.TempDir(), "bucket", "")
	}()
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(10 * time.Second):
		t.Fatal("handler was not terminated after cancellation")
	}
}

func TestRunner_Run_InheritsParentEnvironment(t *testing.T) {
	skipOnWindows(t)

	t.Setenv("BRIDGE_TEST_MARKER", "inherited")
	root := t.TempDir()
	r, err := New(Config{
		Command:       `printf '%s' "$BRIDGE_TEST_MARKER" > "$ROOT_FOLDER/marker.txt"`,
		RootFolderVar: "ROOT_FOLDER",
		BucketVar:     "BUCKET",
		KeyPrefixVar:  "KEY_PREFIX",
	})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), root, "b", ""))

	content, err := os.ReadFile(filepath.Join(root, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "inherited", string(content))
}
