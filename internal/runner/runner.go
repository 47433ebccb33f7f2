// Package runner runs a module's tests with go test -json and collects the results, preferring the student-facing messages that the helpful package records
// during the run.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/modfile"

	"github.com/helpfultests/helpfultests/internal/sidecar"
	"github.com/helpfultests/helpfultests/internal/simplelogger"
)

// startGrace is how long past RunTimeout the run may go before it is stopped. go test's own timeout only starts once package initialization is done, so a
// package that hangs while initializing is stopped by this instead.
const startGrace = 10 * time.Second

// Options configure Run.
type Options struct {
	Dir        string   // Directory to run in; "" is the working directory.
	Packages   []string // Package patterns; nil is "./...".
	RunTimeout time.Duration
	MaxOutput  int // Bytes per message; 0 for no limit.
	Settings   sidecar.Settings
	Go         string // go command; "" is "go".
}

// Run runs the tests and returns their result. If the tests could not run at all, the error is a *LoadError.
func Run(ctx context.Context, opts Options) (Result, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := checkModule(dir); err != nil {
		return Result{}, err
	}

	report, err := os.CreateTemp("", "helpfultests-report-*.jsonl")
	if err != nil {
		return Result{}, fmt.Errorf("creating report file: %w", err)
	}
	reportPath := report.Name()
	report.Close()
	defer os.Remove(reportPath)

	args := []string{"test", "-json", "-count=1"}
	if opts.RunTimeout > 0 {
		args = append(args, "-timeout", opts.RunTimeout.String())
	}
	if len(opts.Packages) == 0 {
		args = append(args, "./...")
	} else {
		args = append(args, opts.Packages...)
	}
	goCmd := opts.Go
	if goCmd == "" {
		goCmd = "go"
	}

	runCtx := ctx
	if opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout+startGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, goCmd, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), opts.Settings.Environ(reportPath)...)

	var buf bytes.Buffer
	var bufMu sync.Mutex
	writer := &lockedBuffer{buf: &buf, mu: &bufMu}
	cmd.Stdout = writer
	cmd.Stderr = writer

	simplelogger.Log("runner: %s %s (in %s)", goCmd, strings.Join(args, " "), dir)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", goCmd, err)
	}
	waitErr := cmd.Wait()
	simplelogger.Log("runner: go test finished in %v: %v", time.Since(start).Round(time.Millisecond), waitErr)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	killed := runCtx.Err() != nil
	var exitErr *exec.ExitError
	if waitErr != nil && !killed && !errors.As(waitErr, &exitErr) {
		return Result{}, fmt.Errorf("running go test: %w", waitErr)
	}

	records, err := sidecar.ReadFile(reportPath)
	if err != nil {
		return Result{}, err
	}
	res, err := parse(strings.NewReader(writer.String()), records, opts.MaxOutput, killed)
	if err == nil {
		simplelogger.Log("runner: %d passed, %d skipped, %d failed, %d errored (%d rich messages)", len(res.Passed), len(res.Skipped), len(res.Failures), len(res.Errors), len(records))
	}
	return res, err
}

// checkModule finds the go.mod governing dir and checks that it parses.
func checkModule(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	for d := abs; ; d = filepath.Dir(d) {
		path := filepath.Join(d, "go.mod")
		data, err := os.ReadFile(path)
		if err == nil {
			f, err := modfile.ParseLax(path, data, nil)
			if err != nil {
				return &LoadError{
					Kind:    LoadNoModule,
					Message: fmt.Sprintf("\U0001F61E Your go.mod file could not be read:\n    %v", err),
					Output:  err.Error(),
				}
			}
			if f.Module == nil {
				return &LoadError{Kind: LoadNoModule, Message: "\U0001F61E Your go.mod file has no module line, recreate it with go mod init"}
			}
			goVersion := "unknown"
			if f.Go != nil {
				goVersion = f.Go.Version
			}
			simplelogger.Log("runner: module %s (go %s) at %s", f.Module.Mod.Path, goVersion, d)
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	return &LoadError{
		Kind:    LoadNoModule,
		Message: "\U0001F61E Could not find a go.mod file, run the tests from your project folder (go mod init creates one)",
	}
}

type lockedBuffer struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
