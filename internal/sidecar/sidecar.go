// Package sidecar is the channel between the runner and the test binaries it starts.
//
// Runner to test binary: settings travel as environment variables (see Settings.Environ). Test binary to runner: every rich failure message is appended as one JSON
// line to the report file named by HELPFULTESTS_REPORT, so the runner can show it instead of the plain test output.
package sidecar

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/helpfultests/helpfultests/internal/diff"
)

// Environment variables understood by test binaries.
const (
	EnvReport        = "HELPFULTESTS_REPORT"
	EnvTimeout       = "HELPFULTESTS_TIMEOUT"
	EnvDiffAlgorithm = "HELPFULTESTS_DIFF_ALGORITHM"
	EnvLineThreshold = "HELPFULTESTS_LINE_THRESHOLD"
)

// Kind classifies a failed test.
type Kind string

const (
	KindFailure Kind = "failure" // The code ran but returned or printed the wrong thing.
	KindError   Kind = "error"   // The code crashed.
	KindTimeout Kind = "timeout" // The code ran too long.
)

// Record is one rich failure message.
type Record struct {
	Package string `json:"package,omitempty"` // Import path of the test's package, without a "_test" suffix.
	Test    string `json:"test"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

var mu sync.Mutex

// Write appends rec to the report file. It is a no-op when HELPFULTESTS_REPORT is unset.
func Write(rec Record) error {
	path := os.Getenv(EnvReport)
	if path == "" {
		return nil
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sidecar: encode record: %w", err)
	}
	line = append(line, '\n')

	mu.Lock()
	defer mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sidecar: open report: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("sidecar: write report: %w", err)
	}
	return nil
}

// ReadFile reads all records from a report file. A missing file has no records.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sidecar: open report: %w", err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return recs, fmt.Errorf("sidecar: decode record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return recs, fmt.Errorf("sidecar: read report: %w", err)
	}
	return recs, nil
}

// Settings are the runner-controlled defaults of test binaries.
type Settings struct {
	Timeout       time.Duration // Per call of code under test; 0 disables.
	DiffAlgorithm diff.Algorithm
	LineThreshold float64
}

// DefaultSettings are used when a test binary runs outside the runner.
var DefaultSettings = Settings{
	Timeout:       time.Second,
	DiffAlgorithm: diff.AlgorithmSequence,
	LineThreshold: diff.DefaultLineThreshold,
}

// LoadSettings returns DefaultSettings overridden by the environment.
func LoadSettings() (Settings, error) {
	s := DefaultSettings
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		s.Timeout = d
	}
	if v := os.Getenv(EnvDiffAlgorithm); v != "" {
		alg, err := diff.ParseAlgorithm(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvDiffAlgorithm, err)
		}
		s.DiffAlgorithm = alg
	}
	if v := os.Getenv(EnvLineThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return s, fmt.Errorf("%s: want a number between 0 and 1, got %q", EnvLineThreshold, v)
		}
		s.LineThreshold = f
	}
	return s, nil
}

// Environ returns s and the report path as KEY=VALUE pairs for a child process.
func (s Settings) Environ(reportPath string) []string {
	return []string{
		EnvReport + "=" + reportPath,
		EnvTimeout + "=" + s.Timeout.String(),
		EnvDiffAlgorithm + "=" + s.DiffAlgorithm.String(),
		EnvLineThreshold + "=" + strconv.FormatFloat(s.LineThreshold, 'f', -1, 64),
	}
}
