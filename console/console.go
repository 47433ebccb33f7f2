// Package console is the print/input entry point for programs tested with helpful. Programs call console.Println and console.Input instead of fmt.Println and
// bufio.Scanner so that tests can redirect, forbid, or script them.
//
// Outside of tests the functions behave like their fmt counterparts on os.Stdout and os.Stdin.
//
// Redirect, OverridePrint, and OverrideInput replace one capability and return a restore func. A restore func restores only what its own call replaced, is safe to call more
// than once, and may be deferred; guards therefore nest:
//
//	restore := console.Redirect(strings.NewReader("5\n"), &buf)
//	defer restore()
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// PrintFunc replaces the print primitive. It receives the fully formatted text.
type PrintFunc func(s string)

// InputFunc replaces the input primitive. It receives the prompt and returns the line without its trailing newline.
type InputFunc func(prompt string) (string, error)

var (
	mu       sync.Mutex
	in       io.Reader // nil means os.Stdin
	out      io.Writer // nil means os.Stdout
	printFn  PrintFunc
	inputFn  InputFunc
	stdinBuf *bufio.Reader
	stdinFor *os.File
)

// Stdin returns the current input stream.
func Stdin() io.Reader {
	mu.Lock()
	defer mu.Unlock()
	return stdinLocked()
}

// Stdout returns the current output stream.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stdoutLocked()
}

func stdinLocked() io.Reader {
	if in != nil {
		return in
	}
	// os.Stdin may be swapped; keep one buffered reader per file so buffered bytes are not lost between calls.
	if stdinBuf == nil || stdinFor != os.Stdin {
		stdinFor = os.Stdin
		stdinBuf = bufio.NewReader(os.Stdin)
	}
	return stdinBuf
}

func stdoutLocked() io.Writer {
	if out != nil {
		return out
	}
	return os.Stdout
}

// Print formats using the default formats for its operands (like fmt.Print) and prints the result.
func Print(a ...any) {
	emit(fmt.Sprint(a...))
}

// Println is like fmt.Println.
func Println(a ...any) {
	emit(fmt.Sprintln(a...))
}

// Printf is like fmt.Printf.
func Printf(format string, a ...any) {
	emit(fmt.Sprintf(format, a...))
}

func emit(s string) {
	mu.Lock()
	fn := printFn
	w := stdoutLocked()
	mu.Unlock()

	if fn != nil {
		fn(s)
		return
	}
	_, _ = io.WriteString(w, s)
}

// Input writes prompt to the output stream and reads one line from the input stream. The returned line has its trailing "\n" (and "\r") removed. At end of input it
// returns io.EOF if no characters were read; a final line without a newline is returned with a nil error.
func Input(prompt string) (string, error) {
	mu.Lock()
	fn := inputFn
	r := stdinLocked()
	w := stdoutLocked()
	mu.Unlock()

	if fn != nil {
		return fn(prompt)
	}
	if prompt != "" {
		if _, err := io.WriteString(w, prompt); err != nil {
			return "", err
		}
	}
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

// Scanln reads one line with Input("") and scans space-separated values from it into a (like fmt.Sscan).
func Scanln(a ...any) (int, error) {
	line, err := Input("")
	if err != nil {
		return 0, err
	}
	return fmt.Sscan(line, a...)
}

type stringReader interface {
	ReadString(delim byte) (string, error)
}

// readLine reads through the next '\n'. Readers without ReadString are read one byte at a time so no input past the newline is consumed.
func readLine(r io.Reader) (string, error) {
	if sr, ok := r.(stringReader); ok {
		return sr.ReadString('\n')
	}
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.WriteByte(buf[0])
			if buf[0] == '\n' {
				return b.String(), nil
			}
		}
		if err != nil {
			return b.String(), err
		}
	}
}

// Redirect replaces the input and output streams. A nil argument keeps the current stream.
func Redirect(r io.Reader, w io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prevIn, prevOut := in, out
	if r != nil {
		in = r
	}
	if w != nil {
		out = w
	}
	return onceLocked(func() {
		if r != nil {
			in = prevIn
		}
		if w != nil {
			out = prevOut
		}
	})
}

// OverridePrint replaces the print primitive used by Print, Println, and Printf. Writes to Stdout() are not affected.
func OverridePrint(fn PrintFunc) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := printFn
	printFn = fn
	return onceLocked(func() { printFn = prev })
}

// OverrideInput replaces the input primitive used by Input and Scanln. Reads from Stdin() are not affected.
func OverrideInput(fn InputFunc) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := inputFn
	inputFn = fn
	return onceLocked(func() { inputFn = prev })
}

// Reset drops every redirection and override.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	in, out, printFn, inputFn = nil, nil, nil, nil
}

func onceLocked(fn func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			fn()
		})
	}
}
