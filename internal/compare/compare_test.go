package compare

import (
	"strings"
	"testing"
	"time"

	"github.com/helpfultests/helpfultests/internal/capture"
	"github.com/helpfultests/helpfultests/internal/diff"
	"github.com/helpfultests/helpfultests/internal/styles"
	"github.com/stretchr/testify/require"
)

func TestCompare_RelaxedIgnoresTrailingWhitespace(t *testing.T) {
	o := Compare("Hello\nWorld  \n", nil, "Hello\nWorld", Options{})
	require.True(t, o.Match)
	require.Equal(t, "", o.Message())
	require.Equal(t, "", o.Diff)
}

func TestCompare_UnorderedSortsLines(t *testing.T) {
	o := Compare("3\n1\n2\n", nil, "1\n2\n3\n", Options{Unordered: true})
	require.True(t, o.Match)

	o = Compare("3\n1\n2\n", nil, "1\n2\n3\n", Options{})
	require.False(t, o.Match)
}

func TestCompare_Ignore(t *testing.T) {
	o := Compare("a b\n c\t\n", nil, "abc", Options{Whitespace: Ignore})
	require.True(t, o.Match)

	o = Compare("a b", nil, "a c", Options{Whitespace: Ignore})
	require.False(t, o.Match)
	require.Equal(t, "", o.Diff)
	msg := o.Message()
	require.NotContains(t, msg, "Difference")
	require.True(t, strings.HasSuffix(msg, "\nNote: all whitespace is ignored"), msg)
}

func TestCompare_Strict(t *testing.T) {
	require.False(t, Compare("a \n", nil, "a\n", Options{Whitespace: Strict}).Match)
	require.True(t, Compare("a \n", nil, "a \n", Options{Whitespace: Strict}).Match)
}

func TestCompare_StrictTrailingNewlineIsVisible(t *testing.T) {
	o := Compare("a\n", nil, "a", Options{Whitespace: Strict})
	require.False(t, o.Match)
	require.Equal(t, "a\n"+styles.Strikethrough("\u23CE"), o.Diff)
	require.Contains(t, o.Message(), styles.Strikethrough("\u23CE"))
}

func TestCompare_PatternTimeout(t *testing.T) {
	prev := patternTimeout
	patternTimeout = 20 * time.Millisecond
	t.Cleanup(func() { patternTimeout = prev })

	o := Compare(strings.Repeat("a", 40)+"b", nil, "^(a+)+$", Options{Pattern: true})
	require.False(t, o.Match)
	require.Error(t, o.Err)
	require.Contains(t, o.Message(), "took too long to match")
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "x", "a  \nb\t\n\n\n", " lead\n  \n", "a b\tc\n"}
	for _, in := range inputs {
		for _, ws := range []Whitespace{Relaxed, Ignore} {
			n := normalize(in, ws)
			require.Equal(t, n, normalize(n, ws))
			require.True(t, Compare(in, nil, n, Options{Whitespace: ws}).Match)
		}
	}
}

func TestMessage_SingleLine(t *testing.T) {
	o := Compare("cat", nil, "cats", Options{})
	require.False(t, o.Match)
	require.Equal(t, "cat"+styles.Underline("s"), o.Diff)

	want := "Expected output: cats\n" +
		"Actual output: cat\n" +
		"Difference (" + styles.Underline(" ") + " are things your output is missing, " + styles.Strikethrough(" ") + " are things your output has extra):\n" +
		"    cat" + styles.Underline("s")
	require.Equal(t, want, o.Message())
}

func TestMessage_MultiLineWithInput(t *testing.T) {
	actual := "5\nYou entered 5"
	o := Compare(actual, []capture.Range{{Offset: 0, Length: 2}}, "5\nYou typed 5", Options{})
	require.False(t, o.Match)

	msg := o.Message()
	require.Contains(t, msg, "Expected output: \n    5\n    You typed 5\n")
	require.Contains(t, styles.Strip(msg), "Actual output (green text is user entered): \n    5\n    You entered 5\n")
	require.Contains(t, msg, "Difference (")
}

func TestMessage_RangesBoldedFromTheEnd(t *testing.T) {
	o := Compare("ab", []capture.Range{{Offset: 0, Length: 1}, {Offset: 1, Length: 1}}, "xy", Options{})
	msg := o.Message()
	require.Contains(t, msg, "Actual output (green text is user entered): "+styles.Bold("ab"))
}

func TestMessage_Unordered(t *testing.T) {
	o := Compare("b\na\n", nil, "a\nc\n", Options{Unordered: true})
	require.False(t, o.Match)
	require.True(t, strings.HasSuffix(o.Message(), "\nNote: order of the lines does not matter"))
}

func TestCompare_Pattern(t *testing.T) {
	o := Compare("Total: 42\n", nil, `Total: \d+`, Options{Pattern: true})
	require.True(t, o.Match)

	o = Compare("Total: forty\n", nil, `Total: \d+`, Options{Pattern: true})
	require.False(t, o.Match)
	msg := o.Message()
	require.Contains(t, msg, "Expected output (this is a regular-expression, so will likely look cryptic): ")
	require.NotContains(t, msg, "Difference")
}

func TestCompare_PatternPerLine(t *testing.T) {
	o := Compare("b2\na1\n", nil, "a\\d\nb\\d", Options{Pattern: true, Unordered: true})
	require.True(t, o.Match)

	o = Compare("a1\n", nil, "a\\d\nb\\d", Options{Pattern: true, Unordered: true})
	require.False(t, o.Match)
}

func TestCompare_InvalidPattern(t *testing.T) {
	o := Compare("x", nil, "(", Options{Pattern: true})
	require.False(t, o.Match)
	require.Error(t, o.Err)
	require.Contains(t, o.Message(), "invalid expected pattern")
}

func TestCompare_CustomDiffer(t *testing.T) {
	d := diff.Differ{Algorithm: diff.AlgorithmMyers, LineThreshold: diff.DefaultLineThreshold}
	o := Compare("one\ntwo\n", nil, "one\nthree\n", Options{Differ: &d})
	require.False(t, o.Match)
	require.Equal(t, "one\ntwo\nthree", styles.Strip(o.Diff))
}

func TestParseWhitespace(t *testing.T) {
	ws, err := ParseWhitespace("ignore")
	require.NoError(t, err)
	require.Equal(t, Ignore, ws)

	ws, err = ParseWhitespace("")
	require.NoError(t, err)
	require.Equal(t, Relaxed, ws)

	_, err = ParseWhitespace("loose")
	require.Error(t, err)
}
