package cli

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/helpfultests/helpfultests/internal/diff"
	"github.com/helpfultests/helpfultests/internal/sidecar"
)

const (
	projectConfigName = ".helpfultests.toml"

	envFormat     = "HELPFULTESTS_FORMAT"
	envRunTimeout = "HELPFULTESTS_RUN_TIMEOUT"
	envMaxOutput  = "HELPFULTESTS_MAX_OUTPUT"
	envNotes      = "HELPFULTESTS_NOTES"
)

// Config is helpfultests' configuration. Later sources override earlier ones: built-in defaults, the user file (~/.config/helpfultests/config.toml), the
// nearest .helpfultests.toml at or above the tested directory, HELPFULTESTS_* environment variables, and finally command-line flags.
type Config struct {
	// Format of the report: auto (ansi on a terminal, text otherwise), html, ansi, or text.
	Format string `toml:"format"`

	// Timeout bounds each call of code under test made by helpful assertions. 0 disables it.
	Timeout duration `toml:"timeout"`

	// RunTimeout bounds the whole go test run.
	RunTimeout duration `toml:"run_timeout"`

	// MaxOutput bounds each failure message, as a size such as "64 KiB". "" or "0" is unlimited.
	MaxOutput string `toml:"max_output"`

	DiffAlgorithm string  `toml:"diff_algorithm"`
	LineThreshold float64 `toml:"line_threshold"`

	// Notes is a Markdown file shown after the report, relative to the file that set it.
	Notes string `toml:"notes"`

	// Sources lists the files that were loaded, lowest precedence first.
	Sources []string `toml:"-"`
}

// duration is a time.Duration written as a string ("1s") in TOML.
type duration time.Duration

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func defaultConfig() Config {
	return Config{
		Format:        "auto",
		Timeout:       duration(sidecar.DefaultSettings.Timeout),
		RunTimeout:    duration(2 * time.Minute),
		MaxOutput:     "64 KiB",
		DiffAlgorithm: sidecar.DefaultSettings.DiffAlgorithm.String(),
		LineThreshold: sidecar.DefaultSettings.LineThreshold,
	}
}

// loadConfig loads the configuration for running tests in dir. flags may be nil; only flags that were set override the configuration.
func loadConfig(dir string, flags *pflag.FlagSet) (Config, error) {
	cfg := defaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadConfigFile(&cfg, filepath.Join(home, ".config", "helpfultests", "config.toml")); err != nil {
			return Config{}, err
		}
	}
	if path, ok := nearestFile(dir, projectConfigName); ok {
		if err := loadConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadConfigFile overlays the TOML file at path onto cfg. A missing file is skipped; unknown keys are an error.
func loadConfigFile(cfg *Config, path string) error {
	notes := cfg.Notes
	cfg.Notes = ""
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, os.ErrNotExist) {
		cfg.Notes = notes
		return nil
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load configuration: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	switch {
	case cfg.Notes == "":
		cfg.Notes = notes
	case !filepath.IsAbs(cfg.Notes):
		cfg.Notes = filepath.Join(filepath.Dir(path), cfg.Notes)
	}
	cfg.Sources = append(cfg.Sources, path)
	return nil
}

// nearestFile looks for name in dir and its parents.
func nearestFile(dir, name string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for d := abs; ; d = filepath.Dir(d) {
		path := filepath.Join(d, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		if filepath.Dir(d) == d {
			return "", false
		}
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(envRunTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", envRunTimeout, err)
		}
		cfg.RunTimeout = duration(d)
	}
	if v := os.Getenv(envMaxOutput); v != "" {
		cfg.MaxOutput = v
	}
	if v := os.Getenv(envNotes); v != "" {
		cfg.Notes = v
	}
	if v := os.Getenv(sidecar.EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", sidecar.EnvTimeout, err)
		}
		cfg.Timeout = duration(d)
	}
	if v := os.Getenv(sidecar.EnvDiffAlgorithm); v != "" {
		cfg.DiffAlgorithm = v
	}
	if v := os.Getenv(sidecar.EnvLineThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", sidecar.EnvLineThreshold, err)
		}
		cfg.LineThreshold = f
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	if flags.Changed("format") {
		cfg.Format, err = flags.GetString("format")
		if err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		d, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = duration(d)
	}
	if flags.Changed("run-timeout") {
		d, err := flags.GetDuration("run-timeout")
		if err != nil {
			return err
		}
		cfg.RunTimeout = duration(d)
	}
	if flags.Changed("notes") {
		cfg.Notes, err = flags.GetString("notes")
		if err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch cfg.Format {
	case "auto", "html", "ansi", "text":
	default:
		return fmt.Errorf("invalid configuration: format must be auto, html, ansi, or text (got %q)", cfg.Format)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("invalid configuration: timeout must be >= 0 (got %v)", time.Duration(cfg.Timeout))
	}
	if cfg.RunTimeout < 0 {
		return fmt.Errorf("invalid configuration: run_timeout must be >= 0 (got %v)", time.Duration(cfg.RunTimeout))
	}
	if _, err := cfg.maxOutputBytes(); err != nil {
		return fmt.Errorf("invalid configuration: max_output: %w", err)
	}
	if _, err := diff.ParseAlgorithm(cfg.DiffAlgorithm); err != nil {
		return fmt.Errorf("invalid configuration: diff_algorithm: %w", err)
	}
	if cfg.LineThreshold < 0 || cfg.LineThreshold > 1 {
		return fmt.Errorf("invalid configuration: line_threshold must be between 0 and 1 (got %v)", cfg.LineThreshold)
	}
	if cfg.Notes != "" {
		if _, err := os.Stat(cfg.Notes); err != nil {
			return fmt.Errorf("invalid configuration: notes: %w", err)
		}
	}
	return nil
}

func (cfg Config) maxOutputBytes() (int, error) {
	s := strings.TrimSpace(cfg.MaxOutput)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return math.MaxInt, nil
	}
	return int(n), nil
}

// settings are the parts of cfg that test binaries read.
func (cfg Config) settings() sidecar.Settings {
	alg, _ := diff.ParseAlgorithm(cfg.DiffAlgorithm)
	return sidecar.Settings{
		Timeout:       time.Duration(cfg.Timeout),
		DiffAlgorithm: alg,
		LineThreshold: cfg.LineThreshold,
	}
}

func writeConfigTOML(w io.Writer, cfg Config) error {
	for _, src := range cfg.Sources {
		if _, err := fmt.Fprintf(w, "# loaded %s\n", src); err != nil {
			return err
		}
	}
	return toml.NewEncoder(w).Encode(cfg)
}
