package runner

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/helpfultests/helpfultests/internal/enrich"
)

// LoadKind says why the tests could not be loaded.
type LoadKind int

const (
	LoadCompile      LoadKind = iota // the package or its tests did not compile
	LoadSyntax                       // a compile failure caused by a syntax error
	LoadStartTimeout                 // no test started before the run was stopped
	LoadCrash                        // the test binary crashed before any test ran
	LoadNoModule                     // no go.mod, or a broken one
	LoadPrint                        // the package printed before any test ran
)

func (k LoadKind) String() string {
	switch k {
	case LoadCompile:
		return "compile"
	case LoadSyntax:
		return "syntax"
	case LoadStartTimeout:
		return "start timeout"
	case LoadCrash:
		return "crash"
	case LoadNoModule:
		return "no module"
	case LoadPrint:
		return "print"
	}
	return fmt.Sprintf("LoadKind(%d)", int(k))
}

// LoadError is returned when the tests never got to run. Message is written for students; Output is what go reported.
type LoadError struct {
	Kind    LoadKind
	File    string // base name; LoadSyntax only
	Line    int    // LoadSyntax only
	Message string
	Output  string
}

func (e *LoadError) Error() string {
	return e.Message
}

var syntaxError = regexp2.MustCompile(`^\s*(?:\S*[/\\])?(?<file>[^/\\\s:]+\.go):(?<line>\d+)(?::\d+)?: syntax error`, regexp2.Multiline)

// buildError turns compiler output into a LoadError.
func buildError(output string) *LoadError {
	details := compilerLines(output)
	if m, err := syntaxError.FindStringMatch(details); err == nil && m != nil {
		line, _ := strconv.Atoi(m.GroupByName("line").String())
		file := filepath.Base(m.GroupByName("file").String())
		return &LoadError{
			Kind:    LoadSyntax,
			File:    file,
			Line:    line,
			Message: fmt.Sprintf("\U0001F61E Your code has a syntax error on line %d of %s\n%s", line, file, enrich.Indent(details, 4)),
			Output:  output,
		}
	}
	return &LoadError{
		Kind:    LoadCompile,
		Message: "\U0001F61E Your code could not be compiled:\n" + enrich.Indent(details, 4),
		Output:  output,
	}
}

// compilerLines drops go's package headers and FAIL summary lines from build output.
func compilerLines(output string) string {
	var keep []string
	for _, line := range strings.Split(output, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "# ") || strings.HasPrefix(t, "FAIL") || t == "ok" {
			continue
		}
		keep = append(keep, strings.TrimRight(line, " \t\r"))
	}
	return strings.Join(keep, "\n")
}

func startTimeoutError(output string) *LoadError {
	return &LoadError{
		Kind:    LoadStartTimeout,
		Message: "\u231B Took too long to start, you shouldn't have any code outside functions",
		Output:  output,
	}
}

func crashError(output string) *LoadError {
	msg := "\U0001F4A5 Your code crashed before any test ran, you shouldn't have any code outside functions"
	if p := panicText(output); p != "" {
		msg += "\n" + enrich.Indent(p, 4)
	}
	return &LoadError{Kind: LoadCrash, Message: msg, Output: output}
}

func printError(printed string) *LoadError {
	return &LoadError{
		Kind:    LoadPrint,
		Message: "\U0001F61E Your code printed before any test ran, you shouldn't have any code outside functions\nIt printed:\n" + enrich.Indent(printed, 4),
		Output:  printed,
	}
}

// panicText returns the first line of the first panic in output.
func panicText(output string) string {
	i := strings.Index(output, "panic: ")
	if i < 0 {
		return ""
	}
	line, _, _ := strings.Cut(output[i:], "\n")
	return line
}
