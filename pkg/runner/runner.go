// Package runner spawns the handler program for one execution group.
//
// The handler is an arbitrary shell expression. It reads its inputs
// from a root folder announced through an environment variable, writes
// outputs under the same root, and exits when done.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

// Config configures a Runner.
type Config struct {
	// Command is the shell expression to execute.
	Command string

	// RootFolderVar names the environment variable that carries the
	// absolute path of the input/output folder.
	RootFolderVar string

	// BucketVar names the environment variable that carries the
	// source bucket.
	BucketVar string

	// KeyPrefixVar names the environment variable that carries the
	// listing prefix.
	KeyPrefixVar string

	// TerminateGrace is how long a signalled handler gets to exit
	// before it is killed. Default: 10s.
	TerminateGrace time.Duration
}

// ExitStatusError reports a handler that terminated with a non-zero
// exit status.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("handler exited with status %d", e.Code)
}

// Runner executes the configured handler command. It is immutable
// after construction.
type Runner struct {
	cfg Config
}

// New creates a Runner. The command must be non-empty.
func New(cfg Config) (*Runner, error) {
	if cfg.Command == "" {
		return nil, errors.New("empty handler command")
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = 10 * time.Second
	}
	return &Runner{cfg: cfg}, nil
}

// Command returns the shell expression the runner executes.
func (r *Runner) Command() string {
	return r.cfg.Command
}

// Run executes the handler once for the given root folder, bucket and
// prefix, and waits for it to terminate.
//
// The child inherits the parent environment plus the three announced
// variables. Standard input is empty; standard output and error are
// inherited. When ctx is cancelled the child receives a termination
// signal and is awaited before Run returns.
//
// A non-zero exit status is reported as *ExitStatusError.
func (r *Runner) Run(ctx context.Context, root, bucket, prefix string) error {
	shell, flag := shellCommand()
	cmd := exec.CommandContext(ctx, shell, flag, r.cfg.Command)
	cmd.Env = append(os.Environ(),
		r.cfg.RootFolderVar+"="+root,
		r.cfg.BucketVar+"="+bucket,
		r.cfg.KeyPrefixVar+"="+prefix,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.cfg.TerminateGrace

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExitStatusError{Code: exitErr.ExitCode()}
	}
	return err
}

// shellCommand picks the platform shell used to interpret the handler
// expression.
func shellCommand() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "/bin/sh", "-c"
}
