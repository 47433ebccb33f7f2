// Package report writes the student-facing summary of a test run. The text may contain styles markers; the caller renders it for the output format.
package report

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/runner"
)

const rule = "==========================================================================="

// writer remembers the first write error so that callers can write unconditionally.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// Write writes the summary of res.
func Write(w io.Writer, res runner.Result) error {
	out := &writer{w: w}
	if res.Success() {
		out.printf("\U0001F642 All tests passed successfully!\n\n")
	} else {
		out.printf("\U0001F641 Your code did not pass all of the tests.\n\n")
	}

	multi := multiplePackages(res)
	for _, group := range []struct {
		header string
		tests  []runner.Test
	}{
		{"Succeeded: %d", res.Passed},
		{"Skipped: %d (incomplete extra credit or alternate options)", res.Skipped},
	} {
		if len(group.tests) == 0 {
			continue
		}
		out.printf(group.header+"\n", len(group.tests))
		for _, t := range group.tests {
			out.printf("  %s\n", testName(t, multi))
		}
		out.printf("\n")
	}

	for _, group := range []struct {
		header string
		tests  []runner.Test
	}{
		{"Failed: %d (your code didn't return/output the expected value)", res.Failures},
		{"Errored: %d (your code crashed during the test)", res.Errors},
	} {
		if len(group.tests) == 0 {
			continue
		}
		out.printf("%s\n\n", rule)
		out.printf(group.header+"\n\n", len(group.tests))
		for _, t := range group.tests {
			out.printf("  %s:\n", testName(t, multi))
			if t.Message != "" {
				out.printf("%s\n", enrich.Indent(t.Message, 4))
			}
		}
	}
	return out.err
}

// WriteLoadError explains why the tests could not run.
func WriteLoadError(w io.Writer, err *runner.LoadError) error {
	out := &writer{w: w}
	out.printf("%s\n", strings.TrimRight(err.Message, "\n"))
	return out.err
}

func multiplePackages(res runner.Result) bool {
	seen := ""
	for _, list := range [][]runner.Test{res.Passed, res.Skipped, res.Failures, res.Errors} {
		for _, t := range list {
			if seen == "" {
				seen = t.Package
			} else if t.Package != seen {
				return true
			}
		}
	}
	return false
}

// testName is the test's name, prefixed with its package name when the run covered several packages.
func testName(t runner.Test, multi bool) string {
	if multi && t.Package != "" {
		return path.Base(t.Package) + "." + t.Name
	}
	return t.Name
}
