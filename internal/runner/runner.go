// Package runner spawns a single child process inside a workspace and
// captures its output streams and exit status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// killGrace bounds how long a timed-out run waits for its output pipes
// once the child has been killed. Grandchildren can hold them open.
const killGrace = 2 * time.Second

// Runner executes commands within a workspace boundary.
//
// A zero Timeout waits for the child indefinitely. A zero MaxOutput
// captures each stream in full.
type Runner struct {
	Workspace string
	Timeout   time.Duration
	MaxOutput int // bytes per stream
}

// Run executes argv and blocks until the child has been reaped. The first
// element is the binary name (resolved via PATH), and the rest are
// arguments. cwd is resolved relative to the workspace root and must
// remain within it. Stdin is not attached.
//
// A child that ran and exited non-zero is reported through Result.ExitCode.
// A child killed by the timeout has exit code -1, Result.TimedOut set, and
// a line naming the command appended to its stderr. A child that could not
// be started is reported as an error.
func (r *Runner) Run(ctx context.Context, argv []string, cwd string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(cwd)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if r.Timeout > 0 {
		cmd.WaitDelay = killGrace
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	truncated := r.MaxOutput > 0 && (stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput)

	timedOut := runErr != nil && r.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case cmd.ProcessState != nil:
			// Started and reaped, but Wait gave up on the output pipes.
			exitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
	}
	if timedOut {
		exitCode = -1
		if n := stderr.Len(); n > 0 && stderr.Bytes()[n-1] != '\n' {
			stderr.WriteByte('\n')
		}
		fmt.Fprintf(&stderr, "timed out after %s: %s\n", r.Timeout, strings.Join(argv, " "))
	}

	return &Result{
		RunID:     uuid.New().String(),
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: truncated,
		TimedOut:  timedOut,
		Duration:  elapsed,
	}, nil
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest. A non-positive limit disables the cap.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		// Report everything as consumed so the copier never sees a short write.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
