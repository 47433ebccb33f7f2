// Package capture runs code with a scripted input stream and a captured output stream, recording which parts of the output were echoed input.
//
// While a Session is open, os.Stdout and the console package's streams point at a temporary file, so output written with fmt and with console interleaves in the order it
// happened. Every read from the scripted input is echoed into the output (as a terminal would show typed text), and the output offset and length of the echo are recorded
// as a Range.
//
// Raw reads of os.Stdin are not scripted: os.Stdin reads as empty while an input session is open. Programs read input through console.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/helpfultests/helpfultests/console"
)

// ErrEOF is returned by Close when the code tried to read past the end of the scripted input.
var ErrEOF = fmt.Errorf("ran out of input: %w", io.EOF)

// Range is a byte range of captured output that came from reading input.
type Range struct {
	Offset int
	Length int
}

// Result is what a session captured.
type Result struct {
	Output    string  // Program output with echoed input, in occurrence order.
	Ranges    []Range // Echoed input, sorted by Offset and non-overlapping.
	Consumed  string  // Input that was read.
	Remaining string  // Input that was never read.
	EOF       bool    // A line read found no input left.
}

// Session is an open capture. Close must be called (it is safe to call more than once).
type Session struct {
	input string

	mu     sync.Mutex
	in     *strings.Reader // nil for output-only sessions
	file   *os.File
	ranges []Range
	eof    bool

	restores  []func()
	closeOnce sync.Once
	result    Result
	closeErr  error
}

// Start opens a session whose input stream yields input.
func Start(input string) (*Session, error) {
	return start(strings.NewReader(input), input)
}

// StartOutput opens a session that captures output only; console input is left alone.
func StartOutput() (*Session, error) {
	return start(nil, "")
}

func start(in *strings.Reader, input string) (*Session, error) {
	f, err := os.CreateTemp("", "helpfultests-output-*")
	if err != nil {
		return nil, fmt.Errorf("capture: create output file: %w", err)
	}
	s := &Session{input: input, in: in, file: f}

	prevStdout := os.Stdout
	os.Stdout = f
	s.restores = append(s.restores, func() { os.Stdout = prevStdout })

	if in == nil {
		s.restores = append(s.restores, console.Redirect(nil, s))
		return s, nil
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("capture: open %s: %w", os.DevNull, err)
	}
	prevStdin := os.Stdin
	os.Stdin = devNull
	s.restores = append(s.restores, func() {
		os.Stdin = prevStdin
		devNull.Close()
	})
	s.restores = append(s.restores, console.Redirect(s, s))
	return s, nil
}

// Run calls fn inside a session with the given input and returns what was captured. Streams are restored even if fn panics. If fn read past the end of input, the
// result is returned together with ErrEOF.
func Run(input string, fn func()) (Result, error) {
	s, err := Start(input)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()
	fn()
	return s.Close()
}

// Read reads scripted input, echoing what it returns into the output. Reaching the end of input through Read is ordinary stream behavior and is not reported as
// ErrEOF.
func (s *Session) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in == nil {
		return 0, io.EOF
	}
	n, err := s.in.Read(p)
	if n > 0 {
		s.recordLocked(string(p[:n]))
	}
	return n, err
}

// ReadString reads scripted input through delim, echoing it into the output. console.Input reads lines with it; a line read that finds no input left marks the session
// as having run out of input.
func (s *Session) ReadString(delim byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in == nil {
		return "", io.EOF
	}
	var b strings.Builder
	var err error
	for {
		var c byte
		c, err = s.in.ReadByte()
		if err != nil {
			break
		}
		b.WriteByte(c)
		if c == delim {
			break
		}
	}
	line := b.String()
	if line != "" {
		s.recordLocked(line)
	} else if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return line, err
}

// Write appends program output.
func (s *Session) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

func (s *Session) recordLocked(data string) {
	off, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	s.ranges = append(s.ranges, Range{Offset: int(off), Length: len(data)})
	_, _ = s.file.WriteString(data)
}

// Close restores the streams and returns the captured result. The error is ErrEOF if the code read past the end of input.
func (s *Session) Close() (Result, error) {
	s.closeOnce.Do(func() {
		for i := len(s.restores) - 1; i >= 0; i-- {
			s.restores[i]()
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		name := s.file.Name()
		data, err := os.ReadFile(name)
		s.file.Close()
		os.Remove(name)

		consumed := len(s.input)
		if s.in != nil {
			consumed -= s.in.Len()
		}
		s.result = Result{
			Output:    string(data),
			Ranges:    append([]Range(nil), s.ranges...),
			Consumed:  s.input[:consumed],
			Remaining: s.input[consumed:],
			EOF:       s.eof,
		}
		switch {
		case err != nil:
			s.closeErr = fmt.Errorf("capture: read output: %w", err)
		case s.eof:
			s.closeErr = ErrEOF
		}
	})
	return s.result, s.closeErr
}

// LastLine returns the last line of text, ignoring trailing newlines. It is the hint shown when input was left unread.
func LastLine(text string) string {
	text = strings.TrimRight(text, "\n")
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i+1:]
	}
	return text
}
