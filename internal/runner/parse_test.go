package runner

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helpfultests/helpfultests/internal/sidecar"
)

const pkg = "example.com/hw1"

func ev(action, test, output string) string {
	b, err := json.Marshal(event{Action: action, Package: pkg, Test: test, Output: output})
	if err != nil {
		panic(err)
	}
	return string(b)
}

func stream(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func names(tests []Test) []string {
	var out []string
	for _, t := range tests {
		out = append(out, t.Name)
	}
	return out
}

func TestParse_Outcomes(t *testing.T) {
	in := stream(
		ev("start", "", ""),
		ev("run", "TestAdd", ""),
		ev("output", "TestAdd", "=== RUN   TestAdd\n"),
		ev("output", "TestAdd", "--- PASS: TestAdd (0.00s)\n"),
		ev("pass", "TestAdd", ""),
		ev("run", "TestSub", ""),
		ev("output", "TestSub", "    sub_test.go:8: The test was in sub_test.go on line 8\n"),
		ev("fail", "TestSub", ""),
		ev("run", "TestMul", ""),
		ev("output", "TestMul", "=== RUN   TestMul\n"),
		ev("output", "TestMul", "    mul_test.go:9: got 5\n"),
		ev("output", "TestMul", "        want 6\n"),
		ev("output", "TestMul", "--- FAIL: TestMul (0.00s)\n"),
		ev("fail", "TestMul", ""),
		ev("run", "TestDiv", ""),
		ev("skip", "TestDiv", ""),
		ev("output", "", "FAIL\n"),
		ev("fail", "", ""),
	)
	records := []sidecar.Record{{Package: pkg, Test: "TestSub", Kind: sidecar.KindFailure, Message: "Expected return value: 1\nActual return value:   -1"}}

	res, err := Parse(in, records, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"TestAdd"}, names(res.Passed))
	require.Equal(t, []string{"TestDiv"}, names(res.Skipped))
	require.Equal(t, []string{"TestSub", "TestMul"}, names(res.Failures))
	require.Empty(t, res.Errors)
	require.False(t, res.Success())
	require.Equal(t, 4, res.Total())

	require.Equal(t, records[0].Message, res.Failures[0].Message)
	require.Equal(t, "got 5\nwant 6", res.Failures[1].Message)
	require.Equal(t, sidecar.KindFailure, res.Failures[1].Kind)
}

func TestParse_Subtests(t *testing.T) {
	in := stream(
		ev("run", "TestTable", ""),
		ev("run", "TestTable/a", ""),
		ev("pass", "TestTable/a", ""),
		ev("run", "TestTable/b", ""),
		ev("output", "TestTable/b", "        table_test.go:20: wrong\n"),
		ev("fail", "TestTable/b", ""),
		ev("fail", "TestTable", ""),
		ev("run", "TestParent", ""),
		ev("run", "TestParent/ok", ""),
		ev("pass", "TestParent/ok", ""),
		ev("output", "TestParent", "    parent_test.go:30: cleanup failed\n"),
		ev("fail", "TestParent", ""),
		ev("fail", "", ""),
	)
	res, err := Parse(in, nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"TestTable/a", "TestParent/ok"}, names(res.Passed))
	require.Equal(t, []string{"TestTable/b", "TestParent"}, names(res.Failures))
	require.Equal(t, "wrong", res.Failures[0].Message)
	require.Equal(t, "cleanup failed", res.Failures[1].Message)
}

func TestParse_PanicAndTimeout(t *testing.T) {
	in := stream(
		ev("run", "TestCrash", ""),
		ev("output", "TestCrash", "--- FAIL: TestCrash (0.00s)\n"),
		ev("output", "TestCrash", "panic: runtime error: index out of range [3] with length 0 [recovered]\n"),
		ev("fail", "TestCrash", ""),
		ev("run", "TestLoop", ""),
		ev("output", "TestLoop", "panic: test timed out after 1s\n"),
		ev("output", "TestLoop", "\trunning tests:\n"),
		ev("fail", "", ""),
	)
	res, err := Parse(in, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	require.Equal(t, sidecar.KindError, res.Errors[0].Kind)
	require.Contains(t, res.Errors[0].Message, "panic: runtime error")
	require.Equal(t, "TestLoop", res.Errors[1].Name)
	require.Equal(t, sidecar.KindTimeout, res.Errors[1].Kind)
	require.Equal(t, runTimeoutMessage, res.Errors[1].Message)
}

func TestParse_SyntaxError(t *testing.T) {
	build := func(output string) string {
		b, _ := json.Marshal(event{Action: "build-output", ImportPath: pkg + " [" + pkg + ".test]", Output: output})
		return string(b)
	}
	failed, _ := json.Marshal(event{Action: "fail", Package: pkg, FailedBuild: pkg + " [" + pkg + ".test]"})
	in := stream(
		build("# example.com/hw1 [example.com/hw1.test]\n"),
		build("./add.go:5:2: syntax error: non-declaration statement outside function body\n"),
		ev("output", "", "FAIL\texample.com/hw1 [build failed]\n"),
		string(failed),
	)
	_, err := Parse(in, nil, 0)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, LoadSyntax, le.Kind)
	require.Equal(t, "add.go", le.File)
	require.Equal(t, 5, le.Line)
	require.Equal(t, "\U0001F61E Your code has a syntax error on line 5 of add.go\n    ./add.go:5:2: syntax error: non-declaration statement outside function body", le.Message)
}

func TestParse_CompileErrorPlainText(t *testing.T) {
	in := stream(
		"# example.com/hw1 [example.com/hw1.test]",
		"./add.go:3:9: undefined: x",
		ev("output", "", "FAIL\texample.com/hw1 [build failed]\n"),
		ev("fail", "", ""),
	)
	_, err := Parse(in, nil, 0)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, LoadCompile, le.Kind)
	require.Equal(t, "\U0001F61E Your code could not be compiled:\n    ./add.go:3:9: undefined: x", le.Message)
}

func TestParse_InitCrash(t *testing.T) {
	in := stream(
		ev("start", "", ""),
		ev("output", "", "panic: boom\n"),
		ev("output", "", "\n"),
		ev("output", "", "goroutine 1 [running]:\n"),
		ev("fail", "", ""),
	)
	_, err := Parse(in, nil, 0)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, LoadCrash, le.Kind)
	require.Contains(t, le.Message, "    panic: boom")
}

func TestParse_PrintBeforeTests(t *testing.T) {
	in := stream(
		ev("start", "", ""),
		ev("output", "", "loading hw1\n"),
		ev("run", "TestAdd", ""),
		ev("output", "TestAdd", "=== RUN   TestAdd\n"),
		ev("pass", "TestAdd", ""),
		ev("output", "", "PASS\n"),
		ev("pass", "", ""),
	)
	_, err := Parse(in, nil, 0)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, LoadPrint, le.Kind)
	require.Equal(t, "\U0001F61E Your code printed before any test ran, you shouldn't have any code outside functions\nIt printed:\n    loading hw1", le.Message)
}

func TestParse_OutputAfterTestsIsNotALoadError(t *testing.T) {
	in := stream(
		ev("start", "", ""),
		ev("run", "TestAdd", ""),
		ev("pass", "TestAdd", ""),
		ev("output", "", "PASS\n"),
		ev("output", "", "ok  \texample.com/hw1\t0.01s\n"),
		ev("pass", "", ""),
	)
	res, err := Parse(in, nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"TestAdd"}, names(res.Passed))
}

func TestParse_StartTimeout(t *testing.T) {
	_, err := parse(stream(ev("start", "", "")), nil, 0, true)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, LoadStartTimeout, le.Kind)
	require.Equal(t, "⌛ Took too long to start, you shouldn't have any code outside functions", le.Error())
}

func TestParse_Killed(t *testing.T) {
	in := stream(
		ev("run", "TestLoop", ""),
		ev("output", "TestLoop", "=== RUN   TestLoop\n"),
	)
	res, err := parse(in, nil, 0, true)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Equal(t, sidecar.KindTimeout, res.Errors[0].Kind)
}

func TestParse_Truncates(t *testing.T) {
	in := stream(
		ev("run", "TestBig", ""),
		ev("output", "TestBig", "    big_test.go:3: "+strings.Repeat("x", 100)+"\n"),
		ev("fail", "TestBig", ""),
	)
	res, err := Parse(in, nil, 10)
	require.NoError(t, err)
	require.Equal(t, "xxxxxxxxxx\n... (90 B more output not shown)", res.Failures[0].Message)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 0))
	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "h\n... (11 B more output not shown)", truncate("héllo world", 2))
}

func TestUndecorate(t *testing.T) {
	out := "=== RUN   TestX\n" +
		"    x_test.go:12: first line\n" +
		"        second line\n" +
		"    x_test.go:13: another\n" +
		"--- FAIL: TestX (0.00s)\n"
	require.Equal(t, "first line\nsecond line\nanother", undecorate(out))
	require.Equal(t, "", undecorate(""))
	require.Equal(t, "plain", undecorate("plain\n"))
}
