package helpful

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/helpfultests/helpfultests/console"
	"github.com/helpfultests/helpfultests/internal/capture"
	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/sidecar"
)

const (
	defaultNoPrintMessage = "You are not allowed to print, instead use return values"
	defaultNoInputMessage = "You are not allowed to use console.Input(), instead use parameters"
)

// GuardOption configures NoPrint and NoInput.
type GuardOption func(*guardConfig)

type guardConfig struct {
	message        string
	allowPrintFunc bool
}

// GuardMessage replaces the failure message of a guard.
func GuardMessage(msg string) GuardOption {
	return func(c *guardConfig) { c.message = msg }
}

// AllowPrintFunc lets NoPrint's code keep running when it calls console.Print, Println, or Printf. Anything printed still fails the test once the code returns.
func AllowPrintFunc() GuardOption {
	return func(c *guardConfig) { c.allowPrintFunc = true }
}

func guard(msg string, opts []GuardOption) guardConfig {
	c := guardConfig{message: msg}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// NoPrint runs fn and fails the test if anything is written to standard output while it runs.
func (h *T) NoPrint(fn func(), opts ...GuardOption) {
	h.tb.Helper()
	cfg := guard(defaultNoPrintMessage, opts)
	violation := location() + "\n" + cfg.message

	sess, err := capture.StartOutput()
	if err != nil {
		h.fail(sidecar.KindError, violation+"\n"+err.Error())
		return
	}
	restore := func() {}
	if !cfg.allowPrintFunc {
		restore = console.OverridePrint(func(string) {
			panic(&failure{kind: sidecar.KindFailure, msg: violation, final: true})
		})
	}
	f := h.run(fn)
	restore()
	res, err := sess.Close()

	switch {
	case f != nil:
		h.failWith(location()+"\n", f)
	case err != nil:
		h.fail(sidecar.KindError, violation+"\n"+err.Error())
	case res.Output != "":
		h.fail(sidecar.KindFailure, violation+"\nYour code printed:\n"+enrich.Indent(res.Output, 4))
	}
}

// NoInput runs fn and fails the test if it asks for input. Reads of standard input see end of input, and a panic caused by that counts as asking.
func (h *T) NoInput(fn func(), opts ...GuardOption) {
	h.tb.Helper()
	cfg := guard(defaultNoInputMessage, opts)
	violation := location() + "\n" + cfg.message

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		h.fail(sidecar.KindError, violation+"\n"+fmt.Sprintf("open %s: %v", os.DevNull, err))
		return
	}
	defer devNull.Close()
	prevStdin := os.Stdin
	os.Stdin = devNull
	restoreIn := console.Redirect(strings.NewReader(""), nil)
	restoreInput := console.OverrideInput(func(string) (string, error) {
		panic(&failure{kind: sidecar.KindFailure, msg: violation, final: true})
	})

	f := h.run(fn)
	restoreInput()
	restoreIn()
	os.Stdin = prevStdin

	if f == nil {
		return
	}
	if f.kind == sidecar.KindError && readPastEnd(f) {
		h.fail(sidecar.KindFailure, violation)
		return
	}
	h.failWith(location()+"\n", f)
}

// readPastEnd reports whether a crash was a panic with an io.EOF error.
func readPastEnd(f *failure) bool {
	return f.cause != nil && errors.Is(f.cause, io.EOF)
}
