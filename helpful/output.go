package helpful

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/helpfultests/helpfultests/internal/capture"
	"github.com/helpfultests/helpfultests/internal/compare"
	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/sidecar"
)

// CheckOption configures OutputEqual, OutputEqualWithInput, and EqualWithInput.
type CheckOption func(*checkConfig)

type checkConfig struct {
	compare  compare.Options
	skipArgs bool
}

// StrictWhitespace compares output exactly. By default trailing whitespace on each line and trailing blank lines are ignored.
func StrictWhitespace() CheckOption {
	return func(c *checkConfig) { c.compare.Whitespace = compare.Strict }
}

// IgnoreWhitespace ignores all whitespace in the output.
func IgnoreWhitespace() CheckOption {
	return func(c *checkConfig) { c.compare.Whitespace = compare.Ignore }
}

// Unordered ignores the order of output lines.
func Unordered() CheckOption {
	return func(c *checkConfig) { c.compare.Unordered = true }
}

// Pattern treats the expected output as a regular expression to search for in the output (in each line when combined with Unordered).
func Pattern() CheckOption {
	return func(c *checkConfig) { c.compare.Pattern = true }
}

// SkipArgsInOutput turns off EqualWithInput's check that string arguments appear in the output.
func SkipArgsInOutput() CheckOption {
	return func(c *checkConfig) { c.skipArgs = true }
}

func (h *T) checkConfig(opts []CheckOption) checkConfig {
	d := h.differ
	c := checkConfig{compare: compare.Options{Differ: &d}}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// OutputEqual runs inv and checks what it printed against expected. It returns inv's results.
func (h *T) OutputEqual(expected string, inv Invocation, opts ...CheckOption) []any {
	h.tb.Helper()
	cfg := h.checkConfig(opts)
	head := header(inv.String())

	sess, err := capture.StartOutput()
	if err != nil {
		h.fail(sidecar.KindError, head+err.Error())
		return nil
	}
	var out []any
	f := h.run(func() { out = inv.call() })
	res, err := sess.Close()
	switch {
	case f != nil:
		h.failWith(head, f)
		return nil
	case err != nil:
		h.fail(sidecar.KindError, head+err.Error())
		return nil
	}

	h.compareOutput(head, res, expected, cfg)
	return out
}

// OutputEqualWithInput runs inv with input as what the user types, and checks what it printed (with the typed input echoed) against expected. All of the
// input must be read. It returns inv's results.
func (h *T) OutputEqualWithInput(input, expected string, inv Invocation, opts ...CheckOption) []any {
	h.tb.Helper()
	cfg := h.checkConfig(opts)
	res, out, head, ok := h.runWithInput(input, inv)
	if !ok {
		return nil
	}
	h.compareOutput(head, res, expected, cfg)
	return out
}

// EqualWithInput runs inv with input as what the user types, and checks its first result against expected. All of the input must be read, and unless
// SkipArgsInOutput is given, every string argument of inv must appear in the output.
func (h *T) EqualWithInput(input string, expected any, inv Invocation, opts ...CheckOption) {
	h.tb.Helper()
	cfg := h.checkConfig(opts)
	res, out, head, ok := h.runWithInput(input, inv)
	if !ok {
		return
	}

	var actual any
	if len(out) > 0 {
		actual = out[0]
	}
	if e, a := coerce(expected, actual); !assert.ObjectsAreEqual(e, a) {
		h.fail(sidecar.KindFailure, head+fmt.Sprintf("Expected return value: %s\nActual return value:   %s", enrich.Format(expected), enrich.Format(actual)))
		return
	}

	if cfg.skipArgs {
		return
	}
	for _, arg := range inv.raw {
		s, isString := arg.(string)
		if !isString || strings.Contains(res.Output, s) {
			continue
		}
		h.fail(sidecar.KindFailure, head+fmt.Sprintf("The argument value \"%s\" was supposed to appear in the output.\nThe actual output was:\n%s", s, enrich.Indent(res.Output, 4)))
		return
	}
}

// runWithInput runs inv in a capture session fed with input and checks that exactly all of the input was read. ok is false if the test was failed.
func (h *T) runWithInput(input string, inv Invocation) (res capture.Result, out []any, head string, ok bool) {
	h.tb.Helper()
	head = header(inv.String()) + "The 'user' typed:\n" + enrich.Indent(input, 4) + "\n"

	sess, err := capture.Start(input)
	if err != nil {
		h.fail(sidecar.KindError, head+err.Error())
		return res, nil, head, false
	}
	f := h.run(func() { out = inv.call() })
	res, err = sess.Close()

	switch {
	case f != nil && f.final:
		h.failWith(head, f)
	case errors.Is(err, capture.ErrEOF):
		h.fail(sidecar.KindFailure, head+"You read all information given and then kept trying to get more input.")
	case f != nil:
		h.failWith(head, f)
	case err != nil:
		h.fail(sidecar.KindError, head+err.Error())
	case res.Consumed == "":
		h.fail(sidecar.KindFailure, head+"You did not read any input at all.")
	case res.Remaining != "":
		h.fail(sidecar.KindFailure, head+"Not all of that input was used, you stopped reading input once you got:\n"+enrich.Indent(capture.LastLine(res.Consumed), 4))
	default:
		return res, out, head, true
	}
	return res, nil, head, false
}

func (h *T) compareOutput(head string, res capture.Result, expected string, cfg checkConfig) {
	h.tb.Helper()
	o := compare.Compare(res.Output, res.Ranges, expected, cfg.compare)
	switch {
	case o.Err != nil:
		h.fail(sidecar.KindError, head+fmt.Sprintf("Could not use the expected output as a pattern: %v", o.Err))
	case !o.Match:
		h.fail(sidecar.KindFailure, head+o.Message())
	}
}
