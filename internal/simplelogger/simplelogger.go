// Package simplelogger is a printf-style debug log shared by the runner and the test binaries it starts.
package simplelogger

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"
)

// EnvLogFile names the log file. The runner passes it through to test binaries, so one file collects lines from several processes; each line carries its pid.
const EnvLogFile = "HELPFULTESTS_LOG_FILE"

var (
	mu  sync.Mutex
	now = time.Now
)

// Enabled reports whether Log writes anywhere.
func Enabled() bool {
	return os.Getenv(EnvLogFile) != ""
}

// Log appends one formatted line, prefixed with a timestamp and the pid, to the file named by HELPFULTESTS_LOG_FILE. It is a no-op when the variable is unset or the
// file cannot be opened.
func Log(format string, args ...any) {
	path := os.Getenv(EnvLogFile)
	if path == "" {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	// One Write per line: O_APPEND keeps lines from different processes whole.
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s [%d] ", now().Format("15:04:05.000"), os.Getpid())
	fmt.Fprintf(&b, format, args...)
	if b.Bytes()[b.Len()-1] != '\n' {
		b.WriteByte('\n')
	}
	_, _ = f.Write(b.Bytes())
}
