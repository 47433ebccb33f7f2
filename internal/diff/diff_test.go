package diff

import (
	"strings"
	"testing"

	"github.com/helpfultests/helpfultests/internal/styles"
	"github.com/stretchr/testify/require"
)

var algorithms = []Algorithm{AlgorithmSequence, AlgorithmMyers}

func TestOpcodes_Partition(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"", "abc"},
		{"abc", ""},
		{"abc", "abc"},
		{"cat", "cats"},
		{"kitten", "sitting"},
		{"Hello World", "Hello, world!"},
		{"aaaa", "aa"},
		{"the quick brown fox", "a quick brown dog jumps"},
		{"日本語テキスト", "日本のテキスト"},
	}
	for _, alg := range algorithms {
		for _, p := range pairs {
			a, b := splitRunes(p[0]), splitRunes(p[1])
			ops := Opcodes(a, b, alg)
			require.NoError(t, validateOpcodes(ops, a, b), "%v %q %q", alg, p[0], p[1])

			var gotA, gotB strings.Builder
			for _, op := range ops {
				gotA.WriteString(strings.Join(a[op.I1:op.I2], ""))
				gotB.WriteString(strings.Join(b[op.J1:op.J2], ""))
			}
			require.Equal(t, p[0], gotA.String())
			require.Equal(t, p[1], gotB.String())
		}
	}
}

func TestOpcodes_Sequence(t *testing.T) {
	ops := Opcodes(splitRunes("abcd"), splitRunes("bcde"), AlgorithmSequence)
	require.Equal(t, []Opcode{
		{Op: OpDelete, I1: 0, I2: 1, J1: 0, J2: 0},
		{Op: OpEqual, I1: 1, I2: 4, J1: 0, J2: 3},
		{Op: OpInsert, I1: 4, I2: 4, J1: 3, J2: 4},
	}, ops)
	require.InDelta(t, 0.75, Ratio(ops, 4, 4), 1e-9)
}

func TestOpcodes_MyersMergesReplace(t *testing.T) {
	ops := Opcodes([]string{"x", "abc"}, []string{"x", "zzz", "extra"}, AlgorithmMyers)
	require.Equal(t, []Opcode{
		{Op: OpEqual, I1: 0, I2: 1, J1: 0, J2: 1},
		{Op: OpReplace, I1: 1, I2: 2, J1: 1, J2: 3},
	}, ops)
}

func TestRatio_Empty(t *testing.T) {
	require.Equal(t, 1.0, Ratio(nil, 0, 0))
	require.Equal(t, 0.0, Ratio([]Opcode{{Op: OpInsert, J2: 3}}, 0, 3))
}

func TestValidateOpcodes_Violations(t *testing.T) {
	a := []string{"a", "b"}
	b := []string{"a", "c"}
	require.Error(t, validateOpcodes([]Opcode{{Op: OpEqual, I1: 0, I2: 2, J1: 0, J2: 2}}, a, b))
	require.Error(t, validateOpcodes([]Opcode{{Op: OpEqual, I1: 0, I2: 1, J1: 0, J2: 1}}, a, b))
	require.Error(t, validateOpcodes([]Opcode{{Op: OpEqual, I1: 0, I2: 1, J1: 0, J2: 1}, {Op: OpReplace, I1: 2, I2: 2, J1: 1, J2: 2}}, a, b))
	require.NoError(t, validateOpcodes([]Opcode{{Op: OpEqual, I1: 0, I2: 1, J1: 0, J2: 1}, {Op: OpReplace, I1: 1, I2: 2, J1: 1, J2: 2}}, a, b))
}

func TestSpan(t *testing.T) {
	for _, alg := range algorithms {
		d := Differ{Algorithm: alg}

		got, ok := d.Span("cat", "cats", 0)
		require.True(t, ok)
		require.Equal(t, "cat"+styles.Underline("s"), got)

		got, ok = d.Span("abc", "xyz", 0)
		require.True(t, ok)
		require.Equal(t, styles.Strikethrough("abc")+styles.Underline("xyz"), got)

		_, ok = d.Span("abc", "xyz", 0.5)
		require.False(t, ok)

		got, ok = d.Span("", "", 0.5)
		require.True(t, ok)
		require.Equal(t, "", got)
	}
}

func TestSpan_IdenticalHasNoMarkup(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "tab\tand ü"} {
		for _, threshold := range []float64{0, 0.3, 0.99} {
			got, ok := Span(s, s, threshold)
			require.True(t, ok)
			require.Equal(t, s, got)
		}
	}
}

func TestSpan_ZeroThresholdAlwaysDiffable(t *testing.T) {
	pairs := [][2]string{{"", "x"}, {"x", ""}, {"abc", "def"}, {"1", "2"}}
	for _, p := range pairs {
		got, ok := Span(p[0], p[1], 0)
		require.True(t, ok)
		require.Equal(t, p[0]+p[1], styles.Strip(got))
	}
}

func TestLines(t *testing.T) {
	got := Lines([]string{"Hello", "World"}, []string{"Hello", "Word"})
	require.Equal(t, []string{"Hello", "Wor" + styles.Strikethrough("l") + "d"}, got)
}

func TestLines_DissimilarPairsAndExcess(t *testing.T) {
	got := Lines([]string{"x", "abc"}, []string{"x", "zzz", "extra"})
	require.Equal(t, []string{
		"x",
		styles.Strikethrough("abc"),
		styles.Underline("zzz"),
		styles.Underline("extra"),
	}, got)
}

func TestLines_DeleteAndInsertBlocks(t *testing.T) {
	got := Lines([]string{"a", "b", "c"}, []string{"a", "c", "d"})
	require.Equal(t, []string{"a", styles.Strikethrough("b"), "c", styles.Underline("d")}, got)
}

func TestLines_BlankLinesAreVisible(t *testing.T) {
	got := Lines([]string{"a", ""}, []string{"a"})
	require.Equal(t, []string{"a", styles.Strikethrough("\u23CE")}, got)

	got = Lines([]string{"a"}, []string{"", "a"})
	require.Equal(t, []string{styles.Underline("\u23CE"), "a"}, got)

	got = Lines([]string{"x", ""}, []string{"x", "abc"})
	require.Equal(t, []string{"x", styles.Strikethrough("\u23CE"), styles.Underline("abc")}, got)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, AlgorithmSequence, alg)

	alg, err = ParseAlgorithm("myers")
	require.NoError(t, err)
	require.Equal(t, AlgorithmMyers, alg)
	require.Equal(t, "myers", alg.String())

	_, err = ParseAlgorithm("patience")
	require.Error(t, err)
}
