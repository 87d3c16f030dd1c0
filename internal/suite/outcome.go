package suite

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Execution is the result of running one file.
type Execution struct {
	Path     string        `json:"path"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"-"` // captured, never reported
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the execution counts as a failure. Only the exit
// status decides; stderr text on a zero exit is not a failure.
func (e Execution) Failed() bool {
	return e.ExitCode != 0
}

func (e Execution) failure() Failure {
	return Failure{Path: e.Path, ExitCode: e.ExitCode, Stderr: e.Stderr}
}

// Failure is one failing file, kept in discovery order.
type Failure struct {
	Path     string `json:"path"`
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr"`
}

// Outcome is the result of a whole run.
type Outcome struct {
	RunID      string      `json:"run_id"`
	Total      int         `json:"total"`
	Failures   []Failure   `json:"failures,omitempty"`
	Executions []Execution `json:"executions,omitempty"`
}

// Summary returns the one-line count of files tested.
func (o *Outcome) Summary() string {
	return fmt.Sprintf("===== Tested %d files =====", o.Total)
}

// Err returns an *AggregateError when at least one file failed, nil otherwise.
func (o *Outcome) Err() error {
	if len(o.Failures) == 0 {
		return nil
	}
	return &AggregateError{Failures: o.Failures}
}

// AggregateError bundles the diagnostics of every failing file.
type AggregateError struct {
	Failures []Failure
}

// Error renders a count header followed by each failure's stderr text,
// separated by blank lines.
func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Failures)+1)
	parts = append(parts, fmt.Sprintf("Found exception in %d files", len(e.Failures)))
	for _, f := range e.Failures {
		parts = append(parts, f.Stderr)
	}
	return strings.Join(parts, "\n\n")
}

// Report writes the summary line to w and returns the outcome's aggregate
// error, if any.
func Report(w io.Writer, o *Outcome) error {
	if _, err := fmt.Fprintln(w, o.Summary()); err != nil {
		return err
	}
	return o.Err()
}
