// Package timeout runs code under test with a deadline and turns panics and timeouts into errors that say where the code was.
//
// Go cannot interrupt a goroutine, so a call that times out is abandoned: its goroutine keeps running in the background. Callers must therefore restore any shared
// state (redirected streams, overrides) themselves instead of relying on defers inside fn.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// ErrTimeout is wrapped by *Error.
	ErrTimeout = errors.New("timed out")

	// ErrGoexit is returned when fn called runtime.Goexit (for example through testing.T.FailNow) on the worker goroutine.
	ErrGoexit = errors.New("runtime.Goexit called")
)

// Error is returned when fn runs longer than allowed.
type Error struct {
	After time.Duration
	Last  Frame // Last line of code under test the abandoned goroutine was running; zero if unknown.
}

func (e *Error) Error() string {
	if e.Last.File == "" {
		return fmt.Sprintf("timed out after %v", e.After)
	}
	return fmt.Sprintf("timed out after %v while running %v", e.After, e.Last)
}

func (e *Error) Unwrap() error {
	return ErrTimeout
}

// PanicError is returned when fn panics.
type PanicError struct {
	Value any
	Stack string
	Frame Frame // Line of code under test that panicked; zero if unknown.
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Run calls fn and waits at most d for it to return. If d <= 0, fn runs on the calling goroutine with no deadline.
//
// It returns nil when fn returns, a *PanicError when fn panics, a *Error when the deadline passes, ErrGoexit when fn calls runtime.Goexit, and ctx.Err() when ctx
// is done first.
func Run(ctx context.Context, d time.Duration, fn func()) error {
	if d <= 0 {
		return runCaught(fn)
	}

	ids := make(chan int64, 1)
	done := make(chan error, 1)
	go func() {
		ids <- goroutineID()
		err := ErrGoexit
		defer func() { done <- err }()
		err = runCaught(fn)
	}()
	id := <-ids

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &Error{After: d, Last: lastFrame(id)}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runCaught(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			err = &PanicError{Value: r, Stack: stack, Frame: panicFrame(stack)}
		}
	}()
	fn()
	return nil
}

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id int64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
