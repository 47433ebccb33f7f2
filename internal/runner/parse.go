package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/dustin/go-humanize"

	"github.com/helpfultests/helpfultests/internal/sidecar"
)

// Test is one test in a Result.
type Test struct {
	Package string
	Name    string // As reported by go test, ex: "TestAdd/negative".
	Kind    sidecar.Kind
	Message string // Failures and errors only.
}

// Result summarizes a test run. Only leaf tests are counted: a test with subtests is represented by its subtests.
type Result struct {
	Passed   []Test
	Skipped  []Test
	Failures []Test // KindFailure
	Errors   []Test // KindError and KindTimeout
}

// Success reports whether nothing failed or errored.
func (r Result) Success() bool {
	return len(r.Failures) == 0 && len(r.Errors) == 0
}

// Total is the number of counted tests.
func (r Result) Total() int {
	return len(r.Passed) + len(r.Skipped) + len(r.Failures) + len(r.Errors)
}

// event is one line of go test -json (see go doc test2json).
type event struct {
	Action      string
	Package     string
	Test        string
	Output      string
	ImportPath  string
	FailedBuild string
}

type testState struct {
	pkg, name   string
	action      string // last of pass, fail, skip; "" if the test never finished
	output      strings.Builder
	hasChildren bool
}

type pkgState struct {
	action      string
	output      strings.Builder
	early       strings.Builder // output before the first test started: package initialization
	failedBuild bool
	ran         bool
}

type parser struct {
	records   map[string][]sidecar.Record // by package + "\x00" + test
	maxOutput int
	killed    bool // the run was stopped from outside

	tests  map[string]*testState
	order  []*testState
	pkgs   map[string]*pkgState
	pkgSeq []string
	build  strings.Builder
}

// Parse reads the output of go test -json and returns the result. records are the rich failure messages written by the helpful package during the run; failing
// tests without one fall back to their own output. maxOutput (bytes, 0 for no limit) bounds each message.
//
// If the tests could not run at all, the error is a *LoadError.
func Parse(r io.Reader, records []sidecar.Record, maxOutput int) (Result, error) {
	return parse(r, records, maxOutput, false)
}

func parse(r io.Reader, records []sidecar.Record, maxOutput int, killed bool) (Result, error) {
	p := &parser{
		records:   map[string][]sidecar.Record{},
		maxOutput: maxOutput,
		killed:    killed,
		tests:     map[string]*testState{},
		pkgs:      map[string]*pkgState{},
	}
	for _, rec := range records {
		k := key(rec.Package, rec.Test)
		p.records[k] = append(p.records[k], rec)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		var ev event
		if !strings.HasPrefix(line, "{") || json.Unmarshal([]byte(line), &ev) != nil {
			// Before go 1.24, build errors are plain text on stderr.
			p.build.WriteString(line)
			p.build.WriteByte('\n')
			continue
		}
		p.handle(ev)
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("reading go test output: %w", err)
	}
	return p.result()
}

func key(pkg, test string) string {
	return pkg + "\x00" + test
}

func (p *parser) pkg(name string) *pkgState {
	ps, ok := p.pkgs[name]
	if !ok {
		ps = &pkgState{}
		p.pkgs[name] = ps
		p.pkgSeq = append(p.pkgSeq, name)
	}
	return ps
}

func (p *parser) test(pkg, name string) *testState {
	k := key(pkg, name)
	ts, ok := p.tests[k]
	if !ok {
		ts = &testState{pkg: pkg, name: name}
		p.tests[k] = ts
		p.order = append(p.order, ts)
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			p.test(pkg, name[:i]).hasChildren = true
		}
		p.pkg(pkg).ran = true
	}
	return ts
}

func (p *parser) handle(ev event) {
	switch ev.Action {
	case "build-output":
		p.build.WriteString(ev.Output)
		return
	case "build-fail":
		return
	}
	if ev.Package == "" {
		return
	}
	if ev.Test == "" {
		ps := p.pkg(ev.Package)
		switch ev.Action {
		case "output":
			ps.output.WriteString(ev.Output)
			if !ps.ran {
				ps.early.WriteString(ev.Output)
			}
		case "pass", "fail", "skip":
			ps.action = ev.Action
			if ev.FailedBuild != "" {
				ps.failedBuild = true
			}
		}
		return
	}

	ts := p.test(ev.Package, ev.Test)
	switch ev.Action {
	case "output":
		ts.output.WriteString(ev.Output)
	case "pass", "fail", "skip":
		ts.action = ev.Action
	}
}

func (p *parser) result() (Result, error) {
	var res Result
	for _, name := range p.pkgSeq {
		ps := p.pkgs[name]
		out := ps.output.String()
		switch {
		case ps.failedBuild || strings.Contains(out, "[build failed]") || strings.Contains(out, "[setup failed]"):
			return res, buildError(p.build.String() + out)
		case ps.ran && strings.TrimSpace(ps.early.String()) != "":
			return res, printError(ps.early.String())
		case ps.ran:
		case strings.Contains(out, "test timed out"), p.killed && ps.action == "":
			return res, startTimeoutError(out)
		case ps.action == "fail" && strings.Contains(out, "panic: "):
			return res, crashError(out)
		}
	}
	if len(p.pkgSeq) == 0 && strings.TrimSpace(p.build.String()) != "" {
		return res, buildError(p.build.String())
	}

	for _, ts := range p.order {
		if ts.hasChildren && !p.selfFailed(ts) {
			continue
		}
		t := Test{Package: ts.pkg, Name: ts.name}
		switch ts.action {
		case "pass":
			res.Passed = append(res.Passed, t)
			continue
		case "skip":
			res.Skipped = append(res.Skipped, t)
			continue
		case "fail":
			t.Kind, t.Message = p.failure(ts)
		default:
			t.Kind, t.Message = p.unfinished(ts)
		}
		t.Message = truncate(t.Message, p.maxOutput)
		if t.Kind == sidecar.KindFailure {
			res.Failures = append(res.Failures, t)
		} else {
			res.Errors = append(res.Errors, t)
		}
	}
	return res, nil
}

// selfFailed reports whether a test with subtests failed on its own account: it failed (or never finished) while every subtest passed.
func (p *parser) selfFailed(parent *testState) bool {
	if parent.action == "pass" || parent.action == "skip" {
		return false
	}
	prefix := parent.name + "/"
	for _, ts := range p.order {
		if ts.pkg == parent.pkg && strings.HasPrefix(ts.name, prefix) && ts.action != "pass" && ts.action != "skip" {
			return false
		}
	}
	return true
}

func (p *parser) failure(ts *testState) (sidecar.Kind, string) {
	if recs := p.records[key(ts.pkg, ts.name)]; len(recs) > 0 {
		return recs[0].Kind, recs[0].Message
	}
	msg := undecorate(ts.output.String())
	switch {
	case strings.Contains(msg, "panic: test timed out"):
		return sidecar.KindTimeout, runTimeoutMessage
	case strings.Contains(msg, "panic: "):
		return sidecar.KindError, msg
	}
	return sidecar.KindFailure, msg
}

// unfinished describes a test that never reported a result because the test binary died or was stopped while it ran.
func (p *parser) unfinished(ts *testState) (sidecar.Kind, string) {
	if recs := p.records[key(ts.pkg, ts.name)]; len(recs) > 0 {
		return recs[0].Kind, recs[0].Message
	}
	out := p.pkgs[ts.pkg].output.String()
	if p.killed || strings.Contains(out, "test timed out") || strings.Contains(ts.output.String(), "test timed out") {
		return sidecar.KindTimeout, runTimeoutMessage
	}
	msg := undecorate(ts.output.String() + out)
	return sidecar.KindError, msg
}

const runTimeoutMessage = "\u231B Took too long to run, perhaps you have an infinite loop or an extra console.Input() call?"

var decoration = regexp2.MustCompile(`^(?<indent>\s*)[\w.\-]+\.go:\d+: `, regexp2.None)

// undecorate removes go test's framing from a test's output: the === and --- status lines, the "file.go:12: " prefix of logged messages, and the extra
// indentation of their continuation lines.
func undecorate(output string) string {
	var out []string
	cont := -1 // indentation of continuation lines, -1 outside a logged message
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "=== ") || strings.HasPrefix(t, "--- ") || t == "FAIL" || t == "PASS" || strings.HasPrefix(t, "FAIL\t") || strings.HasPrefix(t, "exit status ") {
			cont = -1
			continue
		}
		if m, err := decoration.FindStringMatch(line); err == nil && m != nil {
			cont = len(m.GroupByName("indent").String()) + 4
			out = append(out, line[len(m.String()):])
			continue
		}
		if cont >= 0 && strings.HasPrefix(line, strings.Repeat(" ", cont)) {
			out = append(out, line[cont:])
			continue
		}
		cont = -1
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// truncate shortens s to at most maxBytes bytes (on a rune boundary) and says how much was cut.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("\n... (%s more output not shown)", humanize.Bytes(uint64(len(s)-cut)))
}
