package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/helpfultests/helpfultests/internal/runner"
	"github.com/helpfultests/helpfultests/internal/sidecar"
	"github.com/helpfultests/helpfultests/internal/styles"
)

// isolate keeps the user's own configuration and environment out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{envFormat, envRunTimeout, envMaxOutput, envNotes, sidecar.EnvTimeout, sidecar.EnvDiffAlgorithm, sidecar.EnvLineThreshold} {
		t.Setenv(k, "")
	}
	return home
}

func fakeRunner(t *testing.T, res runner.Result, err error) *runner.Options {
	t.Helper()
	var got runner.Options
	prev := runTests
	runTests = func(_ context.Context, opts runner.Options) (runner.Result, error) {
		got = opts
		return res, err
	}
	t.Cleanup(func() { runTests = prev })
	return &got
}

func TestRun_Help(t *testing.T) {
	var out, errOut bytes.Buffer
	code, err := Run([]string{"helpfultests", "-h"}, &RunOptions{Out: &out, Err: &errOut})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if out.Len() == 0 {
		t.Fatalf("expected help output on stdout")
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected empty stderr, got: %q", errOut.String())
	}
}

func TestRun_UnknownFlag_IsUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	code, err := Run([]string{"helpfultests", "--bogus"}, &RunOptions{Out: &out, Err: &errOut})
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d (err=%v)", code, err)
	}
	if !strings.Contains(errOut.String(), "bogus") {
		t.Fatalf("expected the bad flag in stderr, got %q", errOut.String())
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	code, err := Run([]string{"helpfultests", "version"}, &RunOptions{Out: &out})
	if err != nil || code != 0 {
		t.Fatalf("version failed: code=%d err=%v", code, err)
	}
	if got := out.String(); got != Version+"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRun_Passing(t *testing.T) {
	isolate(t)
	got := fakeRunner(t, runner.Result{Passed: []runner.Test{{Package: "example.com/hw1", Name: "TestAdd"}}}, nil)

	var out bytes.Buffer
	code, err := Run([]string{"helpfultests", "--dir", t.TempDir(), "--format", "text", "--timeout", "2s", "./hw1"}, &RunOptions{Out: &out})
	if err != nil || code != 0 {
		t.Fatalf("expected success, got code=%d err=%v", code, err)
	}
	if !strings.Contains(out.String(), "All tests passed successfully!") {
		t.Fatalf("unexpected report: %q", out.String())
	}
	if got.Settings.Timeout.String() != "2s" {
		t.Fatalf("timeout flag not forwarded: %v", got.Settings.Timeout)
	}
	if len(got.Packages) != 1 || got.Packages[0] != "./hw1" {
		t.Fatalf("packages not forwarded: %v", got.Packages)
	}
	if got.MaxOutput != 64*1024 {
		t.Fatalf("expected default max output, got %d", got.MaxOutput)
	}
}

func TestRun_Failing(t *testing.T) {
	isolate(t)
	fakeRunner(t, runner.Result{Failures: []runner.Test{{Name: "TestAdd", Message: "Expected " + styles.Underline("5")}}}, nil)

	var out, errOut bytes.Buffer
	code, err := Run([]string{"helpfultests", "--dir", t.TempDir(), "--format", "html"}, &RunOptions{Out: &out, Err: &errOut})
	if code != 1 || err == nil || err.Error() != "tests failed" {
		t.Fatalf("expected exit code 1 with tests failed, got code=%d err=%v", code, err)
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected empty stderr, got %q", errOut.String())
	}
	if !strings.HasPrefix(out.String(), "<pre") || !strings.Contains(out.String(), "<ins") {
		t.Fatalf("expected html report, got %q", out.String())
	}
}

func TestRun_LoadError(t *testing.T) {
	isolate(t)
	fakeRunner(t, runner.Result{}, &runner.LoadError{Kind: runner.LoadSyntax, Message: "\U0001F61E Your code has a syntax error on line 3 of add.go"})

	var out bytes.Buffer
	code, _ := Run([]string{"helpfultests", "--dir", t.TempDir(), "--format", "text"}, &RunOptions{Out: &out})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if out.String() != "\U0001F61E Your code has a syntax error on line 3 of add.go\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRun_Render(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("cat" + styles.Underline("s") + "\n")
	code, err := Run([]string{"helpfultests", "render", "--format", "text"}, &RunOptions{In: in, Out: &out})
	if err != nil || code != 0 {
		t.Fatalf("render failed: code=%d err=%v", code, err)
	}
	if out.String() != "cat"+styles.Underline("s")+"\n" {
		t.Fatalf("got %q", out.String())
	}

	code, _ = Run([]string{"helpfultests", "render", "--format", "pdf"}, &RunOptions{In: strings.NewReader(""), Out: &out, Err: &bytes.Buffer{}})
	if code != 2 {
		t.Fatalf("expected usage error for a bad format, got %d", code)
	}
}
