// Package suite discovers runnable example files, runs each one in its own
// child process, and aggregates the failures. It is consumed by both the
// CLI and the MCP server.
package suite

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/deixis/chapterrun/internal/config"
	"github.com/deixis/chapterrun/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Engine holds the dependencies for one language's run.
type Engine struct {
	Profile   config.Profile
	Runner    CommandRunner
	Workspace string // relative roots and discovered paths resolve against it
	Log       *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Discover lists the profile's runnable files. When the profile root is
// relative, it is resolved against the workspace and the returned paths
// are relative to the workspace.
func (e *Engine) Discover() ([]string, error) {
	root := e.Profile.Root
	if filepath.IsAbs(root) || e.Workspace == "" {
		return Discover(root, e.Profile.Pattern)
	}

	paths, err := Discover(filepath.Join(e.Workspace, root), e.Profile.Pattern)
	if err != nil {
		return nil, err
	}
	for i, p := range paths {
		if rel, err := filepath.Rel(e.Workspace, p); err == nil {
			paths[i] = rel
		}
	}
	return paths, nil
}

// RunOne runs a single file to completion with the profile's interpreter.
// A child that could not be started is reported as exit code -1 with the
// launch error as its stderr text.
func (e *Engine) RunOne(ctx context.Context, path string) Execution {
	argv := append(slices.Clone(e.Profile.Interpreter), path)

	res, err := e.Runner.Run(ctx, argv, "")
	if err != nil {
		return Execution{Path: path, ExitCode: -1, Stderr: err.Error()}
	}
	return Execution{
		Path:     path,
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
		Duration: res.Duration,
	}
}

// RunAll runs paths one after another, in order, and records the stderr
// of every execution that exited non-zero. It never stops on a failing
// file. It only returns early, with the context's error, when ctx is done.
func (e *Engine) RunAll(ctx context.Context, paths []string) (*Outcome, error) {
	log := e.logger()
	out := &Outcome{
		RunID:      uuid.New().String(),
		Executions: make([]Execution, 0, len(paths)),
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		ex := e.RunOne(ctx, path)
		out.Total++
		out.Executions = append(out.Executions, ex)

		log.Debug("ran file",
			zap.String("path", path),
			zap.Int("exit_code", ex.ExitCode),
			zap.Duration("duration", ex.Duration),
		)
		if ex.Failed() {
			out.Failures = append(out.Failures, ex.failure())
		}
	}

	log.Info("run finished",
		zap.String("run_id", out.RunID),
		zap.Int("total", out.Total),
		zap.Int("failed", len(out.Failures)),
	)
	return out, nil
}

// Run discovers the profile's files and runs them all. The returned error
// is a discovery or cancellation error; failing files are reported through
// Outcome.Err.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	paths, err := e.Discover()
	if err != nil {
		return nil, err
	}
	e.logger().Debug("discovered files",
		zap.String("root", e.Profile.Root),
		zap.String("pattern", e.Profile.Pattern),
		zap.Int("count", len(paths)),
	)
	return e.RunAll(ctx, paths)
}
