package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/deixis/chapterrun"
	"github.com/deixis/chapterrun/internal/config"
	"github.com/deixis/chapterrun/internal/logging"
	"github.com/deixis/chapterrun/internal/runner"
	"github.com/deixis/chapterrun/internal/suite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the flags shared by every subcommand.
type options struct {
	dir         string
	lang        string
	root        string
	pattern     string
	interpreter string
	timeout     time.Duration
	logLevel    string
	logFormat   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "chapterrun",
		Short: "Run every example program of a language and report failures",
		Long: `chapterrun discovers example files (by default codes/python/chapter_*/*.py),
runs each one in its own process, and exits non-zero with the collected
stderr of every file that failed.`,
		Example: `  $ chapterrun
  $ chapterrun run --lang javascript
  $ chapterrun list --pattern 'chapter_array*/*.py'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.dir, "dir", "C", "", "run as if started in `dir`")
	pf.StringVarP(&opts.lang, "lang", "l", "", "language profile (default from .chapterrun, else python)")
	pf.StringVar(&opts.root, "root", "", "override the profile's root directory")
	pf.StringVar(&opts.pattern, "pattern", "", "override the profile's glob below root")
	pf.StringVar(&opts.interpreter, "interpreter", "", `override the profile's interpreter (e.g. "python3 -X utf8")`)
	pf.DurationVar(&opts.timeout, "timeout", 0, "per-file timeout (e.g. 2m); 0 waits forever")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log encoding: console or json")

	runCmd := newRunCmd(opts)
	root.RunE = runCmd.RunE
	root.Flags().AddFlagSet(runCmd.Flags())

	root.AddCommand(
		runCmd,
		newListCmd(opts),
		newMCPCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), chapterrun.Version)
			},
		},
	)
	return root
}

// env is everything a subcommand needs, resolved from flags and config.
type env struct {
	cfg       *config.Config
	workspace string
	language  string
	overrides config.Overrides
	log       *zap.Logger
	runner    *runner.Runner
	engine    *suite.Engine
}

func (o *options) load() (*env, error) {
	start := o.dir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining workspace: %w", err)
		}
		start = wd
	}

	loaded, err := config.Load(start)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	logCfg := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Encoding != "" {
		logCfg.Encoding = cfg.Log.Encoding
	}
	if o.logLevel != "" {
		logCfg.Level = o.logLevel
	}
	if o.logFormat != "" {
		logCfg.Encoding = o.logFormat
	}
	log := logging.New(logCfg)

	language := o.lang
	if language == "" {
		language = cfg.DefaultProfileName()
	}
	overrides := o.overrides()
	profile, err := cfg.ResolveProfile(language, overrides)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout()
	if o.timeout > 0 {
		timeout = o.timeout
	}

	r := &runner.Runner{
		Workspace: loaded.RepoRoot,
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return &env{
		cfg:       cfg,
		workspace: loaded.RepoRoot,
		language:  language,
		overrides: overrides,
		log:       log,
		runner:    r,
		engine: &suite.Engine{
			Profile:   profile,
			Runner:    r,
			Workspace: loaded.RepoRoot,
			Log:       log.With(zap.String("language", language)),
		},
	}, nil
}

// overrides collects the profile fields given on the command line. With
// root, pattern and interpreter all given, the language need not be known.
func (o *options) overrides() config.Overrides {
	return config.Overrides{
		Root:        o.root,
		Pattern:     o.pattern,
		Interpreter: strings.Fields(o.interpreter),
	}
}

// signalContext returns a context cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
