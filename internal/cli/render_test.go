package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/helpfultests/helpfultests/internal/runner"
	"github.com/helpfultests/helpfultests/internal/styles"
)

func TestResolveFormat(t *testing.T) {
	require.Equal(t, "html", resolveFormat("html", &bytes.Buffer{}))
	require.Equal(t, "text", resolveFormat("auto", &bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, "text", resolveFormat("auto", f))
}

func TestWriteReport_Notes(t *testing.T) {
	notes := []byte("# Hints\n\nRead the *whole* prompt.\n")

	var html bytes.Buffer
	require.NoError(t, writeReport(&html, "html", "ok", notes))
	require.Contains(t, html.String(), "<pre>ok</pre>")
	require.Contains(t, html.String(), `<div class="helpfultests-notes">`)
	require.Contains(t, html.String(), "<h1>Hints</h1>")
	require.Contains(t, html.String(), "<em>whole</em>")

	var text bytes.Buffer
	require.NoError(t, writeReport(&text, "text", "ok", notes))
	require.Equal(t, "ok\n"+string(notes), text.String())
}

func TestRun_NotesFlag(t *testing.T) {
	isolate(t)
	fakeRunner(t, runner.Result{Passed: []runner.Test{{Name: "TestAdd"}}}, nil)
	notes := filepath.Join(t.TempDir(), "notes.md")
	writeFile(t, notes, "Submit by **Friday**.\n")

	var out bytes.Buffer
	code, err := Run([]string{"helpfultests", "--dir", t.TempDir(), "--format", "html", "--notes", notes}, &RunOptions{Out: &out})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "<strong>Friday</strong>")
}

func TestRender_TerminalIsANSI(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()

	got := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		chunk := make([]byte, 1024)
		for !strings.Contains(buf.String(), "END") {
			n, err := ptmx.Read(chunk)
			buf.Write(chunk[:n])
			if err != nil {
				break
			}
		}
		got <- buf.String()
	}()

	in := strings.NewReader("x" + styles.Strikethrough("y") + "END\n")
	code, err := Run([]string{"helpfultests", "render"}, &RunOptions{In: in, Out: tty, Err: io.Discard})
	tty.Close()
	require.NoError(t, err)
	require.Equal(t, 0, code)

	select {
	case out := <-got:
		require.Contains(t, out, "\x1b[")
		require.Contains(t, out, "END")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading from the terminal")
	}
}
