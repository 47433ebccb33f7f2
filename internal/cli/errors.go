package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ExitCoder is an error with an explicit process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// UsageError indicates a user-facing mistake (exit code 2).
type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }
func (e UsageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) UsageError {
	return UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitError wraps an error with a specific exit code. A nil Err exits without printing anything.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error { return e.Err }
func (e ExitError) ExitCode() int { return e.Code }

// usageArgs makes a cobra args validator return UsageErrors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return UsageError{Message: err.Error()}
		}
		return nil
	}
}

// exitForError prints err (with usage help for usage errors) and returns the exit code for it.
func exitForError(cmd *cobra.Command, err error, errOut io.Writer) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if !errors.As(err, &ec) {
		fmt.Fprintln(errOut, err.Error())
		return 1
	}
	switch code := ec.ExitCode(); code {
	case 0:
		return 0
	case 2:
		fmt.Fprintln(errOut, err.Error())
		fmt.Fprintln(errOut)
		if cmd != nil {
			fmt.Fprint(errOut, cmd.UsageString())
		}
		return 2
	default:
		var ee ExitError
		if !errors.As(err, &ee) || ee.Err != nil {
			fmt.Fprintln(errOut, err.Error())
		}
		return code
	}
}
