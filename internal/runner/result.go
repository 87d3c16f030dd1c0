package runner

import "time"

// Result holds the output of one child process.
type Result struct {
	RunID     string        // unique identifier for this execution
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if output exceeded the size cap
	TimedOut  bool          // true if the child was killed by Runner.Timeout
	Duration  time.Duration // wall time from start to reap
}
