// Package metrics exports a finished run in the prometheus text format,
// for pickup by node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/deixis/chapterrun/internal/suite"
	"github.com/prometheus/client_golang/prometheus"
)

// Collect registers the run's metrics on a fresh registry.
func Collect(language string, o *suite.Outcome) (*prometheus.Registry, error) {
	labels := prometheus.Labels{"language": language}

	files := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "chapterrun_files_total",
		Help:        "Number of files run.",
		ConstLabels: labels,
	})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "chapterrun_files_failed",
		Help:        "Number of files that exited non-zero.",
		ConstLabels: labels,
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "chapterrun_file_duration_seconds",
		Help:        "Wall time of each file's child process.",
		ConstLabels: labels,
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
	})

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{files, failed, duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	files.Set(float64(o.Total))
	failed.Set(float64(len(o.Failures)))
	for _, ex := range o.Executions {
		duration.Observe(ex.Duration.Seconds())
	}
	return reg, nil
}

// Write collects the run's metrics and writes them atomically to path.
func Write(path, language string, o *suite.Outcome) error {
	reg, err := Collect(language, o)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
