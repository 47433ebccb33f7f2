// Package compare checks captured program output against expected output and explains mismatches.
package compare

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
	"github.com/helpfultests/helpfultests/internal/capture"
	"github.com/helpfultests/helpfultests/internal/diff"
	"github.com/helpfultests/helpfultests/internal/enrich"
	"github.com/helpfultests/helpfultests/internal/styles"
)

// Whitespace selects how whitespace differences are treated.
type Whitespace int

const (
	Relaxed Whitespace = iota // Trailing whitespace on each line and trailing blank lines are ignored.
	Strict                    // Whitespace must match exactly.
	Ignore                    // All whitespace is removed before comparing.
)

func (w Whitespace) String() string {
	switch w {
	case Relaxed:
		return "relaxed"
	case Strict:
		return "strict"
	case Ignore:
		return "ignore"
	}
	return fmt.Sprintf("Whitespace(%d)", int(w))
}

// ParseWhitespace parses "relaxed", "strict", or "ignore". The empty string is Relaxed.
func ParseWhitespace(s string) (Whitespace, error) {
	switch s {
	case "", "relaxed":
		return Relaxed, nil
	case "strict":
		return Strict, nil
	case "ignore":
		return Ignore, nil
	}
	return Relaxed, fmt.Errorf("unknown whitespace mode %q (want relaxed, strict, or ignore)", s)
}

// Options control a comparison. The zero value compares ordered, relaxed, literal text.
type Options struct {
	Whitespace Whitespace
	Unordered  bool         // Sort lines before comparing.
	Pattern    bool         // Expected is a regular expression searched for in the output (in each line when Unordered).
	Differ     *diff.Differ // nil means diff.Default.
}

// Outcome is the result of Compare.
type Outcome struct {
	Match bool

	Expected    string // normalized
	ExpectedRaw string
	Actual      string // normalized
	ActualRaw   string
	Ranges      []capture.Range

	// Diff is the rendered difference from the actual to the expected output. It is empty when the outputs match or when no diff applies (pattern and ignore modes).
	Diff string

	// Err is set when Expected is not a valid pattern or matching it timed out; Match is false.
	Err error

	opts       Options
	singleLine bool
}

// Compare compares the actual output (with input echoed at ranges) against expected.
func Compare(actual string, ranges []capture.Range, expected string, opts Options) Outcome {
	o := Outcome{
		ExpectedRaw: expected,
		ActualRaw:   actual,
		Ranges:      ranges,
		Expected:    normalize(expected, opts.Whitespace),
		Actual:      normalize(actual, opts.Whitespace),
		opts:        opts,
		singleLine:  !strings.Contains(expected, "\n") && !strings.Contains(actual, "\n"),
	}

	actualLines := strings.Split(o.Actual, "\n")
	expectedLines := strings.Split(o.Expected, "\n")
	if opts.Unordered {
		sort.Strings(actualLines)
		sort.Strings(expectedLines)
	}

	switch {
	case opts.Pattern && !opts.Unordered:
		o.Match, o.Err = search(o.Expected, o.Actual)
	case opts.Pattern:
		o.Match, o.Err = searchLines(expectedLines, actualLines)
	default:
		o.Match = equalLines(actualLines, expectedLines)
	}

	if !o.Match && o.Err == nil && !opts.Pattern && opts.Whitespace != Ignore {
		d := diff.Default
		if opts.Differ != nil {
			d = *opts.Differ
		}
		if o.singleLine {
			o.Diff, _ = d.Span(actualLines[0], expectedLines[0], 0)
		} else {
			o.Diff = strings.Join(d.Lines(actualLines, expectedLines), "\n")
		}
	}
	return o
}

func normalize(s string, ws Whitespace) string {
	switch ws {
	case Strict:
		return s
	case Ignore:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	default:
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
		}
		return strings.TrimRight(strings.Join(lines, "\n"), "\n")
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// patternTimeout bounds one pattern match, since a backtracking pattern can otherwise run for ages on a long output.
var patternTimeout = time.Second

func search(pattern, text string) (bool, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false, fmt.Errorf("invalid expected pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = patternTimeout
	ok, err := re.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("expected pattern %q took too long to match: %w", pattern, err)
	}
	return ok, nil
}

// searchLines matches each expected pattern line against the actual line at the same position. Differing line counts never match.
func searchLines(patterns, lines []string) (bool, error) {
	if len(patterns) != len(lines) {
		return false, nil
	}
	for i := range patterns {
		ok, err := search(patterns[i], lines[i])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Message explains a mismatch: the expected output, the actual output with echoed input bolded, and (when applicable) a diff with a legend. Mode notes are appended.
// It returns "" for a match.
func (o Outcome) Message() string {
	if o.Match {
		return ""
	}
	if o.Err != nil {
		return o.Err.Error()
	}

	var expectedNote, actualNote string
	if o.opts.Pattern {
		expectedNote = " (this is a regular-expression, so will likely look cryptic)"
	}
	actual := o.ActualRaw
	if len(o.Ranges) > 0 {
		// Bolding grows the text, so apply ranges from the end to keep earlier offsets valid.
		for i := len(o.Ranges) - 1; i >= 0; i-- {
			actual = styles.BoldRange(actual, o.Ranges[i].Offset, o.Ranges[i].Length)
		}
		actualNote = " (green text is user entered)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Expected output%s: %s", expectedNote, enrich.Block(o.ExpectedRaw, o.singleLine))
	fmt.Fprintf(&b, "\nActual output%s: %s", actualNote, enrich.Block(actual, o.singleLine))
	if !o.opts.Pattern && o.opts.Whitespace != Ignore {
		fmt.Fprintf(&b, "\nDifference (%s are things your output is missing, %s are things your output has extra):\n", styles.Underline(" "), styles.Strikethrough(" "))
		b.WriteString(enrich.Indent(o.Diff, 4))
	}
	if o.opts.Whitespace == Ignore {
		b.WriteString("\nNote: all whitespace is ignored")
	}
	if o.opts.Unordered {
		b.WriteString("\nNote: order of the lines does not matter")
	}
	return b.String()
}
