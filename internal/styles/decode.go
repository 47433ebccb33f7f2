package styles

import "strings"

// Style is the display style of a Segment.
type Style int

const (
	StyleNone Style = iota
	StyleBold
	StyleUnderline
	StyleStrikethrough
)

func (s Style) String() string {
	switch s {
	case StyleBold:
		return "bold"
	case StyleUnderline:
		return "underline"
	case StyleStrikethrough:
		return "strikethrough"
	default:
		return "none"
	}
}

// Segment is a maximal run of text sharing one Style. Text never contains markers.
type Segment struct {
	Text  string
	Style Style
}

// Decode splits marked text into segments. Bold substitution is reversed before markers are interpreted, because a bold marker precedes the substituted rune. Adjacent
// segments always differ in Style; Decode("") returns nil.
func Decode(text string) []Segment {
	var segs []Segment
	var cur strings.Builder
	curStyle := StyleNone

	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, Segment{Text: cur.String(), Style: curStyle})
			cur.Reset()
		}
	}

	var prev rune
	for _, r := range text {
		r = fromBold(r)
		if isMarker(r) {
			prev = r
			continue
		}
		style := styleFor(prev)
		prev = r
		if style != curStyle {
			flush()
			curStyle = style
		}
		cur.WriteRune(r)
	}
	flush()
	return segs
}

func styleFor(marker rune) Style {
	switch marker {
	case BoldMarker:
		return StyleBold
	case UnderlineMarker:
		return StyleUnderline
	case StrikethroughMarker:
		return StyleStrikethrough
	}
	return StyleNone
}
