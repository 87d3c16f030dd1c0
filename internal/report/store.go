// Package report persists finished runs so a failing file's diagnostic
// can be retrieved after the run summary has been delivered.
package report

import (
	"fmt"
	"path/filepath"

	"github.com/deixis/chapterrun/internal/suite"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the stored form of a suite.Outcome.
type RunResult struct {
	ID       string          `json:"id"`
	Language string          `json:"language"`
	Root     string          `json:"root"`
	Pattern  string          `json:"pattern"`
	Total    int             `json:"total"`
	Failures []suite.Failure `json:"failures,omitempty"`
}

// FromOutcome builds a RunResult for an outcome produced by a run of the
// named language profile.
func FromOutcome(language, root, pattern string, o *suite.Outcome) *RunResult {
	return &RunResult{
		ID:       o.RunID,
		Language: language,
		Root:     root,
		Pattern:  pattern,
		Total:    o.Total,
		Failures: o.Failures,
	}
}

// Passed reports whether every file in the run exited zero.
func (r *RunResult) Passed() bool {
	return len(r.Failures) == 0
}

// ByPath returns the failure recorded for path. The path may be given
// as recorded or in any form that cleans to it.
func ByPath(result *RunResult, path string) (suite.Failure, error) {
	want := filepath.Clean(path)
	for _, f := range result.Failures {
		if filepath.Clean(f.Path) == want {
			return f, nil
		}
	}
	return suite.Failure{}, fmt.Errorf("run %s has no failure for %s", result.ID, path)
}
