// Package styles encodes bold, underline, and strikethrough spans into ordinary strings using reserved marker runes, and decodes such strings into display formats.
//
// Markers travel through any plain-text channel (test output, JSON, log files) unharmed. A marker styles the single rune that immediately follows it, so a styled span is a
// marker before every rune of the span. Spans never nest.
package styles

import "strings"

// Marker runes. Underline and strikethrough are combining characters, so raw marked text still reads as underlined/struck in most terminals.
const (
	BoldMarker          = '\u2060' // word joiner
	UnderlineMarker     = '\u0333' // combining double low line
	StrikethroughMarker = '\u0334' // combining tilde overlay
)

// Bold substitutes ASCII letters and digits with mathematical sans-serif bold code points (so plain contexts still show emphasis) and marks every rune as bold.
func Bold(text string) string {
	return mark(text, BoldMarker, toBold)
}

// Underline marks every rune of text as underlined. In diffs, underline means "missing from your output".
func Underline(text string) string {
	return mark(text, UnderlineMarker, nil)
}

// Strikethrough marks every rune of text as struck through. In diffs, strikethrough means "extra in your output".
func Strikethrough(text string) string {
	return mark(text, StrikethroughMarker, nil)
}

// BoldRange bolds text[offset:offset+length]. The range is clamped to text. offset and length are byte counts and must fall on rune boundaries.
func BoldRange(text string, offset, length int) string {
	if offset < 0 {
		length += offset
		offset = 0
	}
	if offset >= len(text) || length <= 0 {
		return text
	}
	end := offset + length
	if end > len(text) {
		end = len(text)
	}
	return text[:offset] + Bold(text[offset:end]) + text[end:]
}

// Strip removes all markers from text and reverses bold substitution, leaving the plain text a reader would see.
func Strip(text string) string {
	var b strings.Builder
	for _, seg := range Decode(text) {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func mark(text string, marker rune, subst func(rune) rune) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) * 4)
	for _, r := range text {
		if subst != nil {
			r = subst(r)
		}
		b.WriteRune(marker)
		b.WriteRune(r)
	}
	return b.String()
}

// Code points of the mathematical sans-serif bold block.
const (
	boldDigitZero = 0x1D7EC
	boldCapitalA  = 0x1D5D4
	boldSmallA    = 0x1D5EE
)

func toBold(r rune) rune {
	switch {
	case r >= '0' && r <= '9':
		return boldDigitZero + (r - '0')
	case r >= 'A' && r <= 'Z':
		return boldCapitalA + (r - 'A')
	case r >= 'a' && r <= 'z':
		return boldSmallA + (r - 'a')
	}
	return r
}

func fromBold(r rune) rune {
	switch {
	case r >= boldDigitZero && r < boldDigitZero+10:
		return '0' + (r - boldDigitZero)
	case r >= boldCapitalA && r < boldCapitalA+26:
		return 'A' + (r - boldCapitalA)
	case r >= boldSmallA && r < boldSmallA+26:
		return 'a' + (r - boldSmallA)
	}
	return r
}

func isMarker(r rune) bool {
	return r == BoldMarker || r == UnderlineMarker || r == StrikethroughMarker
}
