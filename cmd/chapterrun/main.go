// Command chapterrun runs every example program of a language and fails
// when any of them exits non-zero.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/deixis/chapterrun/internal/suite"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var agg *suite.AggregateError
	if errors.As(err, &agg) {
		fmt.Fprintln(stderr, agg.Error())
		return 1
	}
	fmt.Fprintf(stderr, "chapterrun: %v\n", err)
	return 1
}
