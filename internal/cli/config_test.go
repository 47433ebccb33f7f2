package cli

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/helpfultests/helpfultests/internal/diff"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := loadConfig(t.TempDir(), nil)
	require.NoError(t, err)
	require.Equal(t, "auto", cfg.Format)
	require.Equal(t, time.Second, time.Duration(cfg.Timeout))
	require.Equal(t, 2*time.Minute, time.Duration(cfg.RunTimeout))
	require.Empty(t, cfg.Sources)

	n, err := cfg.maxOutputBytes()
	require.NoError(t, err)
	require.Equal(t, 64*1024, n)

	s := cfg.settings()
	require.Equal(t, diff.AlgorithmSequence, s.DiffAlgorithm)
	require.Equal(t, time.Second, s.Timeout)
}

func TestLoadConfig_Layers(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".config", "helpfultests", "config.toml"), "format = \"html\"\ntimeout = \"3s\"\n")

	project := t.TempDir()
	writeFile(t, filepath.Join(project, projectConfigName), "timeout = \"5s\"\nnotes = \"NOTES.md\"\nmax_output = \"1 KiB\"\n")
	writeFile(t, filepath.Join(project, "NOTES.md"), "# Hints\n")
	sub := filepath.Join(project, "hw1")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, err := loadConfig(sub, nil)
	require.NoError(t, err)
	require.Equal(t, "html", cfg.Format)
	require.Equal(t, 5*time.Second, time.Duration(cfg.Timeout))
	require.Equal(t, filepath.Join(project, "NOTES.md"), cfg.Notes)
	require.Len(t, cfg.Sources, 2)

	t.Setenv(envFormat, "text")
	cfg, err = loadConfig(sub, nil)
	require.NoError(t, err)
	require.Equal(t, "text", cfg.Format)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "auto", "")
	flags.Duration("timeout", 0, "")
	flags.Duration("run-timeout", 0, "")
	flags.String("notes", "", "")
	require.NoError(t, flags.Parse([]string{"--format", "ansi", "--run-timeout", "10s"}))
	cfg, err = loadConfig(sub, flags)
	require.NoError(t, err)
	require.Equal(t, "ansi", cfg.Format)
	require.Equal(t, 10*time.Second, time.Duration(cfg.RunTimeout))
	require.Equal(t, 5*time.Second, time.Duration(cfg.Timeout))
}

func TestMaxOutputBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"1 KiB", 1024},
		{"2MB", 2000000},
		{"9 EiB", math.MaxInt},
	}
	for _, tt := range tests {
		n, err := Config{MaxOutput: tt.in}.maxOutputBytes()
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, n, tt.in)
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, projectConfigName), "colour = \"green\"\n")
	_, err := loadConfig(dir, nil)
	require.ErrorContains(t, err, "unknown keys: colour")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"format", func(c *Config) { c.Format = "pdf" }, "format must be"},
		{"timeout", func(c *Config) { c.Timeout = duration(-time.Second) }, "timeout must be >= 0"},
		{"run timeout", func(c *Config) { c.RunTimeout = duration(-time.Second) }, "run_timeout must be >= 0"},
		{"max output", func(c *Config) { c.MaxOutput = "lots" }, "max_output"},
		{"diff algorithm", func(c *Config) { c.DiffAlgorithm = "patience" }, "diff_algorithm"},
		{"line threshold", func(c *Config) { c.LineThreshold = 1.5 }, "line_threshold must be between 0 and 1"},
		{"notes", func(c *Config) { c.Notes = filepath.Join(t.TempDir(), "missing.md") }, "notes"},
	}
	require.NoError(t, validateConfig(defaultConfig()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(&cfg)
			require.ErrorContains(t, validateConfig(cfg), tt.want)
		})
	}
}

func TestRun_Config(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, projectConfigName), "diff_algorithm = \"myers\"\n")

	var out bytes.Buffer
	code, err := Run([]string{"helpfultests", "config", "-C", dir}, &RunOptions{Out: &out})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.True(t, strings.HasPrefix(out.String(), "# loaded "+filepath.Join(dir, projectConfigName)+"\n"), out.String())
	require.Contains(t, out.String(), `diff_algorithm = "myers"`)
	require.Contains(t, out.String(), `timeout = "1s"`)
}

func TestRun_BadConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, projectConfigName), "line_threshold = 7.0\n")

	var errOut bytes.Buffer
	code, err := Run([]string{"helpfultests", "-C", dir}, &RunOptions{Out: &bytes.Buffer{}, Err: &errOut})
	require.Equal(t, 1, code)
	require.ErrorContains(t, err, "line_threshold")
	require.Contains(t, errOut.String(), "line_threshold")
}
