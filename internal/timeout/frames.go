package timeout

import (
	"fmt"
	"go/build"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Frame is one line of a goroutine's stack.
type Frame struct {
	Function string // Fully qualified, ex: "example.com/hw1.loop".
	File     string
	Line     int
}

// String formats f for students: "line 12 of loop.go in hw1.loop()".
func (f Frame) String() string {
	fn := f.Function
	if i := strings.LastIndexByte(fn, '/'); i >= 0 {
		fn = fn[i+1:]
	}
	return fmt.Sprintf("line %d of %s in %s()", f.Line, filepath.Base(f.File), fn)
}

// Package returns the import path of f's function with any "_test" suffix removed: "example.com/hw1" for "example.com/hw1_test.TestAdd".
func (f Frame) Package() string {
	fn := f.Function
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return ""
	}
	return strings.TrimSuffix(fn[:slash+1+dot], "_test")
}

// Name returns f's function name without its package: "TestAdd.func1".
func (f Frame) Name() string {
	fn := f.Function[strings.LastIndexByte(f.Function, '/')+1:]
	if dot := strings.IndexByte(fn, '.'); dot >= 0 {
		return fn[dot+1:]
	}
	return fn
}

// Caller returns the innermost user frame of the calling goroutine, starting skip frames above the caller of Caller.
func Caller(skip int) Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		rf, more := frames.Next()
		f := Frame{Function: rf.Function, File: rf.File, Line: rf.Line}
		if isUserFrame(f) {
			return f
		}
		if !more {
			return Frame{}
		}
	}
}

const modulePrefix = "github.com/helpfultests/helpfultests/"

// isUserFrame reports whether f belongs to code under test: not the Go runtime or standard library, and not this module's non-test code.
func isUserFrame(f Frame) bool {
	if f.File == "" {
		return false
	}
	if goroot := filepath.ToSlash(build.Default.GOROOT); goroot != "" && strings.HasPrefix(filepath.ToSlash(f.File), goroot+"/src/") {
		return false
	}
	if strings.HasPrefix(f.Function, modulePrefix) && !strings.HasSuffix(f.File, "_test.go") {
		return false
	}
	return true
}

// lastFrame returns the innermost user frame of goroutine id.
func lastFrame(id int64) Frame {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return firstUserFrame(parseFrames(goroutineSection(string(buf[:n]), id)))
}

// panicFrame returns the innermost user frame below the panic call in a debug.Stack dump.
func panicFrame(stack string) Frame {
	frames := parseFrames(stack)
	for i, f := range frames {
		if f.Function == "panic" {
			return firstUserFrame(frames[i+1:])
		}
	}
	return firstUserFrame(frames)
}

func firstUserFrame(frames []Frame) Frame {
	for _, f := range frames {
		if isUserFrame(f) {
			return f
		}
	}
	return Frame{}
}

func goroutineSection(all string, id int64) string {
	header := "goroutine " + strconv.FormatInt(id, 10) + " ["
	start := strings.Index(all, header)
	if start < 0 {
		return ""
	}
	section := all[start:]
	if end := strings.Index(section, "\n\n"); end >= 0 {
		section = section[:end]
	}
	return section
}

// parseFrames parses the "function(args)\n\tfile:line +0x.." pairs of a stack dump.
func parseFrames(stack string) []Frame {
	lines := strings.Split(stack, "\n")
	var frames []Frame
	for i := 0; i+1 < len(lines); i++ {
		fnLine, locLine := lines[i], lines[i+1]
		if fnLine == "" || strings.HasPrefix(fnLine, "\t") || strings.HasPrefix(fnLine, "goroutine ") || !strings.HasPrefix(locLine, "\t") {
			continue
		}
		i++
		fn := fnLine
		if rest, ok := strings.CutPrefix(fn, "created by "); ok {
			fn, _, _ = strings.Cut(rest, " in goroutine ")
		} else if p := strings.LastIndexByte(fn, '('); p > 0 {
			fn = fn[:p]
		}
		loc := strings.TrimSpace(locLine)
		if p := strings.LastIndex(loc, " +0x"); p >= 0 {
			loc = loc[:p]
		}
		colon := strings.LastIndexByte(loc, ':')
		if colon < 0 {
			continue
		}
		line, err := strconv.Atoi(loc[colon+1:])
		if err != nil {
			continue
		}
		frames = append(frames, Frame{Function: fn, File: loc[:colon], Line: line})
	}
	return frames
}
