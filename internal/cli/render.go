package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/yuin/goldmark"
	"golang.org/x/term"

	"github.com/helpfultests/helpfultests/internal/styles"
)

// resolveFormat turns "auto" into ansi when w is a terminal and text otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "ansi"
	}
	return "text"
}

// renderText renders marker text in format (not auto).
func renderText(format, text string) string {
	switch format {
	case "html":
		return styles.HTML(text)
	case "ansi":
		return styles.ANSI(text)
	}
	return styles.Raw(text)
}

// renderNotes renders Markdown notes: converted to HTML for the html format, unchanged otherwise.
func renderNotes(format string, markdown []byte) (string, error) {
	if format != "html" {
		return string(markdown), nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(markdown, &buf); err != nil {
		return "", fmt.Errorf("render notes: %w", err)
	}
	return buf.String(), nil
}

// writeReport writes report text and optional notes to w in format.
func writeReport(w io.Writer, format, text string, notes []byte) error {
	out := renderText(format, text)
	if len(notes) > 0 {
		n, err := renderNotes(format, notes)
		if err != nil {
			return err
		}
		if format == "html" {
			out += "\n<div class=\"helpfultests-notes\">\n" + n + "</div>\n"
		} else {
			out += "\n" + n
		}
	}
	return writeStringln(w, out)
}
