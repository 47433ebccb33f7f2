package diff

import (
	"strings"

	"github.com/helpfultests/helpfultests/internal/styles"
)

// Span diffs a against b character by character with Default's algorithm. See Differ.Span.
func Span(a, b string, threshold float64) (string, bool) {
	return Default.Span(a, b, threshold)
}

// Lines diffs two slices of lines with Default. See Differ.Lines.
func Lines(a, b []string) []string {
	return Default.Lines(a, b)
}

// Span renders the changes from a to b inline: equal text unchanged, deleted text struck through, inserted text underlined, and replaced text struck through then
// underlined. If threshold > 0 and the similarity ratio of a and b is at or below threshold, the strings are too different for an inline diff to help and Span returns
// ("", false).
func (d Differ) Span(a, b string, threshold float64) (string, bool) {
	ra, rb := splitRunes(a), splitRunes(b)
	ops := Opcodes(ra, rb, d.Algorithm)
	if threshold > 0 && Ratio(ops, len(ra), len(rb)) <= threshold {
		return "", false
	}

	var sb strings.Builder
	for _, op := range ops {
		del := strings.Join(ra[op.I1:op.I2], "")
		ins := strings.Join(rb[op.J1:op.J2], "")
		switch op.Op {
		case OpEqual:
			sb.WriteString(del)
		case OpDelete:
			sb.WriteString(styles.Strikethrough(del))
		case OpInsert:
			sb.WriteString(styles.Underline(ins))
		case OpReplace:
			sb.WriteString(styles.Strikethrough(del))
			sb.WriteString(styles.Underline(ins))
		}
	}
	return sb.String(), true
}

// Lines renders a line diff of a against b, one output element per rendered line. Deleted lines are struck through and inserted lines underlined. Within a replaced block,
// lines are paired positionally: pairs similar enough per d.LineThreshold get a character diff, other pairs become a deleted line followed by an inserted line, and lines
// left over on either side are wholly deleted or inserted.
func (d Differ) Lines(a, b []string) []string {
	var out []string
	for _, op := range Opcodes(a, b, d.Algorithm) {
		switch op.Op {
		case OpEqual:
			out = append(out, a[op.I1:op.I2]...)
		case OpDelete:
			out = appendStyled(out, a[op.I1:op.I2], styles.Strikethrough)
		case OpInsert:
			out = appendStyled(out, b[op.J1:op.J2], styles.Underline)
		case OpReplace:
			out = d.appendReplaced(out, a[op.I1:op.I2], b[op.J1:op.J2])
		}
	}
	return out
}

func (d Differ) appendReplaced(out []string, oldLines, newLines []string) []string {
	n := min(len(oldLines), len(newLines))
	for k := 0; k < n; k++ {
		if s, ok := d.Span(oldLines[k], newLines[k], d.LineThreshold); ok {
			out = append(out, s)
			continue
		}
		out = append(out, styleLine(oldLines[k], styles.Strikethrough), styleLine(newLines[k], styles.Underline))
	}
	out = appendStyled(out, oldLines[n:], styles.Strikethrough)
	out = appendStyled(out, newLines[n:], styles.Underline)
	return out
}

func appendStyled(out []string, lines []string, style func(string) string) []string {
	for _, l := range lines {
		out = append(out, styleLine(l, style))
	}
	return out
}

// emptyLine stands in for a wholly inserted or deleted blank line, which would otherwise render as nothing.
const emptyLine = "\u23CE"

func styleLine(l string, style func(string) string) string {
	if l == "" {
		l = emptyLine
	}
	return style(l)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
