package styles

import (
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// HTML wrappers for each style. The page is expected to show the whole report in one preformatted block.
const (
	htmlInsertOpen = `<ins style="text-decoration:underline;background-color:#d4fcbc;">`
	htmlDeleteOpen = `<del style="text-decoration:line-through;background-color:#fbb;color:#555;">`
	htmlBoldOpen   = `<b style="font-style:italic;font-weight:bolder;color:green;">`
)

var htmlEscapes = map[rune]string{
	'\n': "<br>",
	'<':  "&lt;",
	'>':  "&gt;",
	'&':  "&amp;",
	'"':  "&quot;",
	'\'': "&apos;",
}

// HTML decodes marked text into a <pre> block. Underline becomes <ins>, strikethrough becomes <del>, and bold becomes <b>. Styles still open at the end of text are closed.
func HTML(text string) string {
	var b strings.Builder
	b.WriteString("<pre>")
	for _, seg := range Decode(text) {
		open, close := htmlTags(seg.Style)
		b.WriteString(open)
		for _, r := range seg.Text {
			if esc, ok := htmlEscapes[r]; ok {
				b.WriteString(esc)
			} else {
				b.WriteRune(r)
			}
		}
		b.WriteString(close)
	}
	b.WriteString("</pre>")
	return b.String()
}

func htmlTags(s Style) (string, string) {
	switch s {
	case StyleUnderline:
		return htmlInsertOpen, "</ins>"
	case StyleStrikethrough:
		return htmlDeleteOpen, "</del>"
	case StyleBold:
		return htmlBoldOpen, "</b>"
	}
	return "", ""
}

var (
	ansiInsert = forcedColor(color.FgBlack, color.BgGreen, color.Underline)
	ansiDelete = forcedColor(color.FgBlack, color.BgRed, color.CrossedOut)
	ansiBold   = forcedColor(color.FgGreen, color.Bold, color.Italic)
)

// forcedColor returns a color that emits escape codes even when stdout is not a terminal. ANSI is only selected by callers that already decided to emit color.
func forcedColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// ANSI decodes marked text into terminal escape sequences. Control characters other than newline and tab are shown as \xXX so stray escapes in program output cannot
// corrupt the terminal. Styling is applied per line so backgrounds do not bleed past line ends.
func ANSI(text string) string {
	var b strings.Builder
	for _, seg := range Decode(text) {
		plain := sanitize(seg.Text)
		var c *color.Color
		switch seg.Style {
		case StyleUnderline:
			c = ansiInsert
		case StyleStrikethrough:
			c = ansiDelete
		case StyleBold:
			c = ansiBold
		}
		if c == nil {
			b.WriteString(plain)
			continue
		}
		for i, line := range strings.Split(plain, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(c.Sprint(line))
			}
		}
	}
	return b.String()
}

// Raw returns text unchanged. Marker runes are combining characters or invisible, so most terminals show underline and strikethrough without further processing.
func Raw(text string) string {
	return text
}

const hexDigits = "0123456789ABCDEF"

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune('\uFFFD')
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
			b.WriteString(`\x`)
			b.WriteByte(hexDigits[byte(r)>>4])
			b.WriteByte(hexDigits[byte(r)&0x0F])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
