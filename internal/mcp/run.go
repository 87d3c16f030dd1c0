package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/chapterrun/internal/report"
	"github.com/deixis/chapterrun/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type languageParams struct {
	Language string `json:"language,omitempty" jsonschema:"language profile to use (e.g. python, javascript, ruby). Defaults to the configured language."`
}

func (h *handler) listHandler(ctx context.Context, req *mcp.CallToolRequest, params languageParams) (*mcp.CallToolResult, any, error) {
	eng, language, err := h.engine(params.Language)
	if err != nil {
		return errorResult(err.Error())
	}
	paths, err := eng.Discover()
	if err != nil {
		return errorResult(fmt.Sprintf("discovery failed: %v", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n", language)
	fmt.Fprintf(&b, "Pattern: %s/%s\n", eng.Profile.Root, eng.Profile.Pattern)
	fmt.Fprintf(&b, "Files (%d):\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	return textResult(b.String())
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params languageParams) (*mcp.CallToolResult, any, error) {
	eng, language, err := h.engine(params.Language)
	if err != nil {
		return errorResult(err.Error())
	}

	outcome, err := eng.Run(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	rr := report.FromOutcome(language, eng.Profile.Root, eng.Profile.Pattern, outcome)
	if err := h.store.Save(rr); err != nil {
		h.log.Warn("saving run", zap.String("run_id", rr.ID), zap.Error(err))
	}

	return textResult(formatRun(outcome))
}

func formatRun(o *suite.Outcome) string {
	var b strings.Builder

	runErr := o.Err()
	if runErr == nil {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", o.RunID)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, o.Summary())

	var agg *suite.AggregateError
	if errors.As(runErr, &agg) {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Found exception in %d files:\n", len(agg.Failures))
		for _, f := range agg.Failures {
			fmt.Fprintf(&b, "  %s (exit %d): %s\n", f.Path, f.ExitCode, lastLine(f.Stderr))
		}
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with chapter_inspect(run_id=%q, path=\"<path>\").\n", o.RunID)
	}
	return b.String()
}

// lastLine returns the last non-empty line of s. For a Python traceback
// this is the exception line.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "(no stderr)"
}

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a chapter_run result"`
	Path  string `json:"path" jsonschema:"path of a failing file, as listed in the chapter_run result"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Path == "" {
		return errorResult("path is required")
	}

	rr, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	f, err := report.ByPath(rr, params.Path)
	if err != nil {
		return textResult(fmt.Sprintf("No failure recorded for %s in run %s (%s, %d files tested).", params.Path, rr.ID, rr.Language, rr.Total))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", rr.ID, rr.Language)
	fmt.Fprintf(&b, "%s: exit %d\n", f.Path, f.ExitCode)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Stderr:")
	for _, line := range strings.Split(strings.TrimRight(f.Stderr, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return textResult(b.String())
}
