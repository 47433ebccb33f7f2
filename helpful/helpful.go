package helpful

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/helpfultests/helpfultests/internal/diff"
	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/sidecar"
	"github.com/helpfultests/helpfultests/internal/simplelogger"
	"github.com/helpfultests/helpfultests/internal/timeout"
)

// TB is the part of testing.TB that helpers use. *testing.T satisfies it.
type TB interface {
	Helper()
	Name() string
	Errorf(format string, args ...any)
	FailNow()
}

// T runs assertions against a test. Create one per test with New.
type T struct {
	tb      TB
	ctx     context.Context
	timeout time.Duration
	differ  diff.Differ

	// nested is positive while code under test runs. Failures raised then are panicked up to the helper that started the run, since FailNow must be called on
	// the test goroutine.
	nested atomic.Int32
}

// Option configures a T.
type Option func(*T)

// WithTimeout sets how long each call of code under test may run. Zero or less disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *T) { h.timeout = d }
}

// WithMyersDiff makes output differences use the Myers algorithm instead of the default sequence matcher.
func WithMyersDiff() Option {
	return func(h *T) { h.differ.Algorithm = diff.AlgorithmMyers }
}

// WithLineThreshold sets the similarity (0 to 1) above which a replaced line is diffed character by character instead of shown as a whole-line change.
func WithLineThreshold(f float64) Option {
	return func(h *T) { h.differ.LineThreshold = f }
}

// WithContext stops waiting for code under test when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(h *T) { h.ctx = ctx }
}

// New returns a T for tb. Defaults come from the runner's environment (see sidecar.LoadSettings), or sidecar.DefaultSettings outside the runner.
func New(tb TB, opts ...Option) *T {
	s, err := sidecar.LoadSettings()
	if err != nil {
		simplelogger.Log("helpful: bad settings, using defaults: %v", err)
	}
	h := &T{
		tb:      tb,
		ctx:     context.Background(),
		timeout: s.Timeout,
		differ:  diff.Differ{Algorithm: s.DiffAlgorithm, LineThreshold: s.LineThreshold},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// failure is a failed check on its way to being reported.
type failure struct {
	kind sidecar.Kind
	msg  string

	// final failures are reported as they are. Others get the header of the helper that caught them.
	final bool

	cause error // the panic of a crash
}

// fail reports a failure and stops the test, or, while code under test is running, panics it up to the helper that started the run.
func (h *T) fail(kind sidecar.Kind, msg string) {
	h.tb.Helper()
	f := &failure{kind: kind, msg: msg, final: true}
	if h.nested.Load() > 0 {
		panic(f)
	}
	h.report(f)
}

// failWith reports f, prefixing header unless f is final.
func (h *T) failWith(header string, f *failure) {
	h.tb.Helper()
	if f.final {
		h.fail(f.kind, f.msg)
		return
	}
	h.fail(f.kind, header+f.msg)
}

func (h *T) report(f *failure) {
	h.tb.Helper()
	if f.msg != "" {
		rec := sidecar.Record{Package: timeout.Caller(0).Package(), Test: h.tb.Name(), Kind: f.kind, Message: f.msg}
		if err := sidecar.Write(rec); err != nil {
			simplelogger.Log("helpful: %v", err)
		}
		h.tb.Errorf("%s", f.msg)
	}
	h.tb.FailNow()
}

// run calls fn under the timeout. It returns nil if fn returned normally.
func (h *T) run(fn func()) *failure {
	h.nested.Add(1)
	err := timeout.Run(h.ctx, h.timeout, fn)
	h.nested.Add(-1)
	return classify(err)
}

func classify(err error) *failure {
	var (
		pe *timeout.PanicError
		te *timeout.Error
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe):
		if f, ok := pe.Value.(*failure); ok {
			return f
		}
		simplelogger.Log("helpful: recovered panic: %v\n%s", pe.Value, pe.Stack)
		return &failure{kind: sidecar.KindError, msg: crashMessage(pe), cause: pe}
	case errors.As(err, &te):
		simplelogger.Log("helpful: %v", te)
		return &failure{kind: sidecar.KindTimeout, msg: timeoutMessage(te)}
	case errors.Is(err, timeout.ErrGoexit):
		// FailNow or SkipNow was called by the code itself; testing already knows.
		return &failure{kind: sidecar.KindFailure, final: true}
	default:
		return &failure{kind: sidecar.KindError, msg: fmt.Sprintf("Stopped waiting for your code: %v", err)}
	}
}

func crashMessage(pe *timeout.PanicError) string {
	msg := fmt.Sprintf("\U0001F4A5 Your code crashed: %v", pe.Value)
	if pe.Frame.File != "" {
		msg += fmt.Sprintf("\nIt crashed on %v", pe.Frame)
	}
	return msg
}

func timeoutMessage(te *timeout.Error) string {
	msg := "\u231B Took too long to run, perhaps you have an infinite loop or an extra console.Input() call?"
	if te.Last.File != "" {
		msg += fmt.Sprintf("\nIt was running %v when it was stopped", te.Last)
	}
	return msg
}

// location describes the test line that called the current helper.
func location() string {
	f := timeout.Caller(0)
	if f.File == "" {
		return ""
	}
	return enrich.Location(f.File, f.Line, f.Name())
}

// header starts the message of a helper that ran call.
func header(call string) string {
	s := location() + "\n"
	if call != "" {
		s += "The function call was: " + call + "\n"
	}
	return s
}

// Fail stops the test with msg as its message.
func (h *T) Fail(msg string) {
	h.tb.Helper()
	h.fail(sidecar.KindFailure, msg)
}

// Within runs fn with a timeout of d instead of the configured one. Crashes and timeouts in fn fail the test.
func (h *T) Within(d time.Duration, fn func()) {
	h.tb.Helper()
	prev := h.timeout
	h.timeout = d
	f := h.run(fn)
	h.timeout = prev
	if f != nil {
		h.failWith(header(""), f)
	}
}
