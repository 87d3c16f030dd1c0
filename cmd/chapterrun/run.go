package main

import (
	"encoding/json"
	"fmt"

	"github.com/deixis/chapterrun/internal/metrics"
	"github.com/deixis/chapterrun/internal/report"
	"github.com/deixis/chapterrun/internal/suite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		jsonOut     bool
		metricsFile string
		storeDir    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every discovered file and report failures (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			ctx, stop := signalContext()
			defer stop()

			outcome, err := e.engine.Run(ctx)
			if err != nil {
				return err
			}

			if metricsFile != "" {
				if err := metrics.Write(metricsFile, e.language, outcome); err != nil {
					e.log.Warn("metrics not written", zap.Error(err))
				}
			}

			if storeDir != "" {
				rr := report.FromOutcome(e.language, e.engine.Profile.Root, e.engine.Profile.Pattern, outcome)
				if err := report.NewDiskStore(storeDir).Save(rr); err != nil {
					e.log.Warn("run not stored", zap.Error(err))
				}
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(jsonOutcome(e.language, outcome)); err != nil {
					return err
				}
				return outcome.Err()
			}

			return suite.Report(cmd.OutOrStdout(), outcome)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&jsonOut, "json", false, "print the outcome as JSON instead of the summary line")
	f.StringVar(&metricsFile, "metrics-file", "", "write prometheus textfile metrics to `path`")
	f.StringVar(&storeDir, "store-dir", "", "save the run as <run id>.json in `dir`")
	return cmd
}

type outcomeJSON struct {
	RunID    string          `json:"run_id"`
	Language string          `json:"language"`
	Total    int             `json:"total"`
	Failed   int             `json:"failed"`
	Failures []suite.Failure `json:"failures"`
}

func jsonOutcome(language string, o *suite.Outcome) outcomeJSON {
	failures := o.Failures
	if failures == nil {
		failures = []suite.Failure{}
	}
	return outcomeJSON{
		RunID:    o.RunID,
		Language: language,
		Total:    o.Total,
		Failed:   len(o.Failures),
		Failures: failures,
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the files a run would execute, in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			paths, err := e.engine.Discover()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
