package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpfultests/helpfultests/internal/report"
	"github.com/helpfultests/helpfultests/internal/runner"
	"github.com/helpfultests/helpfultests/internal/simplelogger"
)

var runTests = runner.Run

// errTestsFailed exits with code 1 without a message; the report already explains.
var errTestsFailed = ExitError{Code: 1}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "helpfultests [packages]",
		Short: "Run Go tests and explain the results to students.",
		Long: "Runs go test on the given packages (default ./...) and prints a report written for students: which tests passed, and for each failing test what\n" +
			"was expected, what the code did, and where.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootFlags := root.Flags()
	dir := rootFlags.StringP("dir", "C", ".", "Directory to run the tests in.")
	rootFlags.String("format", "auto", "Report format: auto, html, ansi, or text.")
	rootFlags.Duration("timeout", 0, "Time limit for each call of code under test (default: config timeout).")
	rootFlags.Duration("run-timeout", 0, "Time limit for the whole test run (default: config run_timeout).")
	rootFlags.String("notes", "", "Markdown file to show after the report.")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*dir, cmd.Flags())
		if err != nil {
			return ExitError{Code: 1, Err: err}
		}
		simplelogger.Log("cli: config %+v", cfg)
		maxOutput, _ := cfg.maxOutputBytes()
		format := resolveFormat(cfg.Format, cmd.OutOrStdout())

		res, err := runTests(cmd.Context(), runner.Options{
			Dir:        *dir,
			Packages:   args,
			RunTimeout: time.Duration(cfg.RunTimeout),
			MaxOutput:  maxOutput,
			Settings:   cfg.settings(),
		})
		var text bytes.Buffer
		var le *runner.LoadError
		switch {
		case errors.As(err, &le):
			if err := report.WriteLoadError(&text, le); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := report.Write(&text, res); err != nil {
				return err
			}
		}

		var notes []byte
		if cfg.Notes != "" {
			notes, err = os.ReadFile(cfg.Notes)
			if err != nil {
				return err
			}
		}
		if err := writeReport(cmd.OutOrStdout(), format, strings.TrimRight(text.String(), "\n"), notes); err != nil {
			return err
		}
		if le != nil || !res.Success() {
			return errTestsFailed
		}
		return nil
	}

	renderCmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render text containing style markers (from a file or stdin).",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
	}
	renderFormat := renderCmd.Flags().String("format", "auto", "Output format: auto, html, ansi, or text.")
	renderCmd.RunE = func(cmd *cobra.Command, args []string) error {
		switch *renderFormat {
		case "auto", "html", "ansi", "text":
		default:
			return usageErrorf("invalid --format %q (want auto, html, ansi, or text)", *renderFormat)
		}
		var data []byte
		var err error
		if len(args) == 1 && args[0] != "-" {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
		format := resolveFormat(*renderFormat, cmd.OutOrStdout())
		return writeStringln(cmd.OutOrStdout(), renderText(format, strings.TrimRight(string(data), "\n")))
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML.",
		Args:  usageArgs(cobra.NoArgs),
	}
	configDir := configCmd.Flags().StringP("dir", "C", ".", "Directory whose configuration to show.")
	configCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*configDir, nil)
		if err != nil {
			return ExitError{Code: 1, Err: err}
		}
		return writeConfigTOML(cmd.OutOrStdout(), cfg)
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the helpfultests version.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeStringln(cmd.OutOrStdout(), Version)
		},
	}

	root.AddCommand(renderCmd, configCmd, versionCmd)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return UsageError{Message: err.Error()}
	})
	return root
}

func writeStringln(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := fmt.Fprint(w, s)
	return err
}
