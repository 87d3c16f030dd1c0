// Package mcp provides the chapterrun MCP server, registering the run
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/chapterrun"
	"github.com/deixis/chapterrun/internal/config"
	"github.com/deixis/chapterrun/internal/report"
	"github.com/deixis/chapterrun/internal/runner"
	"github.com/deixis/chapterrun/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// Options carries the command-line choices that outlive a configuration
// reload. The zero value defers everything to the configuration.
type Options struct {
	Log *zap.Logger

	// Language replaces the configured default language.
	Language string

	// Overrides apply to the default language only.
	Overrides config.Overrides

	// Timeout, when positive, replaces the configured per-file timeout.
	Timeout time.Duration
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // guards cfg, runner and workspace against root updates
	cfg       *config.Config
	runner    *runner.Runner
	workspace string
	store     report.Store
	log       *zap.Logger
	language  string
	overrides config.Overrides
	timeout   time.Duration
}

// NewServer creates an MCP server with all chapterrun tools registered.
// opts may be nil.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string, opts *Options) *mcp.Server {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{
		cfg:       cfg,
		runner:    r,
		workspace: workspace,
		store:     store,
		log:       log,
		language:  opts.Language,
		overrides: opts.Overrides,
		timeout:   opts.Timeout,
	}

	serverOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "chapterrun", Version: chapterrun.Version}, serverOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "chapter_list",
		Description: "List the example files a run would execute for a language, in run order.",
	}, h.listHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "chapter_run",
		Description: `Run every example file of a language, one child process at a time, and report failures.

A file fails when it exits non-zero. All files are run even after a failure.
Results are stored for drill-down via chapter_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "chapter_inspect",
		Description: "Show the full stderr of one failing file from a chapter_run result.",
	}, h.inspectHandler)

	return s
}

// engine builds a suite engine for the named language profile. An empty
// name selects the default language, the only one the overrides touch.
func (h *handler) engine(language string) (*suite.Engine, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	def := h.language
	if def == "" {
		def = h.cfg.DefaultProfileName()
	}
	if language == "" {
		language = def
	}
	var o config.Overrides
	if language == def {
		o = h.overrides
	}
	profile, err := h.cfg.ResolveProfile(language, o)
	if err != nil {
		return nil, "", err
	}
	r := *h.runner
	return &suite.Engine{
		Profile:   profile,
		Runner:    &r,
		Workspace: h.workspace,
		Log:       h.log.With(zap.String("language", language)),
	}, language, nil
}

// updateWorkspaceFromRoots queries the client for MCP roots and points the
// handler at the first file root, reloading its configuration. This is
// called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	if err := h.reload(u.Path); err != nil {
		h.log.Warn("ignoring client root", zap.String("root", u.Path), zap.Error(err))
	}
}

// reload points the handler at the repository containing dir and rereads
// its configuration, keeping the timeout from Options.
func (h *handler) reload(dir string) error {
	loaded, err := config.Load(dir)
	if err != nil {
		return err
	}

	timeout := loaded.Config.Timeout()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timeout > 0 {
		timeout = h.timeout
	}
	h.cfg = loaded.Config
	h.workspace = loaded.RepoRoot
	h.runner = &runner.Runner{
		Workspace: loaded.RepoRoot,
		Timeout:   timeout,
		MaxOutput: loaded.Config.MaxOutputBytes(),
	}
	h.log.Info("workspace updated from client roots", zap.String("workspace", loaded.RepoRoot))
	return nil
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
