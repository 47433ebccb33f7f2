package enrich

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"
	"github.com/sanity-io/litter"
)

// inlineLimit is the longest rendering (in terminal columns) shown inline after a label. Longer values, and values containing a newline, are shown as an indented block.
const inlineLimit = 20

var (
	compactDump = litter.Options{Compact: true, StripPackageNames: true}
	blockDump   = litter.Options{StripPackageNames: true}
)

// Format renders v for a message. Short renderings are returned as is; others are returned as "\n" followed by the rendering indented by 4 spaces, so that the
// result can always be appended directly after a label such as "Actual return value: ".
func Format(v any) string {
	s := repr(v)
	if strings.Contains(s, "\n") || runewidth.StringWidth(s) > inlineLimit {
		return "\n" + Indent(s, 4)
	}
	return s
}

func repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		// Short multi-line strings read best unquoted as a block.
		if strings.Contains(x, "\n") && runewidth.StringWidth(x) < inlineLimit {
			return x
		}
		return strconv.Quote(x)
	case error:
		return x.Error()
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
		s := compactDump.Sdump(v)
		if runewidth.StringWidth(s) > inlineLimit {
			s = blockDump.Sdump(v)
		}
		return s
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// roundValue rounds numeric v to places decimal places. Non-numeric values are returned unchanged.
func roundValue(v any, places int) any {
	f, ok := ToFloat(v)
	if !ok {
		return v
	}
	return Round(f, places)
}

// Round rounds f to places decimal places (half away from zero).
func Round(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}

// ToFloat converts any integer or float value to float64.
func ToFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// structuralDiff returns a go-cmp diff for composite values, or "" when either value is not composite or cannot be compared.
func structuralDiff(expected, actual any) (out string) {
	if !composite(expected) || !composite(actual) {
		return ""
	}
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	return strings.TrimRight(cmp.Diff(expected, actual, cmp.Exporter(func(reflect.Type) bool { return true })), "\n")
}

func composite(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// Indent indents every line of s by spaces spaces. A trailing newline is dropped and "" stays "".
func Indent(s string, spaces int) string {
	if s == "" {
		return ""
	}
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	return pad + strings.Join(lines, "\n"+pad)
}

// Block returns s unchanged when inline is true, otherwise "\n" followed by s indented by 4 spaces.
func Block(s string, inline bool) string {
	if inline {
		return s
	}
	return "\n" + Indent(s, 4)
}

var (
	sourceMu    sync.Mutex
	sourceCache = map[string][]string{}
)

// Location describes where an assertion is: "The test was in add_test.go on line 12 in TestAdd():" followed by the trimmed source line when the file can be read.
func Location(file string, line int, function string) string {
	loc := fmt.Sprintf("The test was in %s on line %d in %s()", filepath.Base(file), line, function)
	src := sourceLine(file, line)
	if src == "" {
		return loc
	}
	return loc + ":\n    " + src
}

func sourceLine(file string, line int) string {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	lines, ok := sourceCache[file]
	if !ok {
		data, err := os.ReadFile(file)
		if err == nil {
			lines = strings.Split(string(data), "\n")
		}
		sourceCache[file] = lines
	}
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}
