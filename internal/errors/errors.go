package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a command execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// BackendError wraps a storage failure with the backend name, the operation and
// the path involved. The returned error carries a stack trace for --debug output.
func BackendError(backend, operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return oops.
		In(backend).
		With("operation", operation).
		With("path", path).
		Hint(getBackendSuggestion(backend, err)).
		Wrapf(err, "%s backend %s %s", backend, operation, path)
}

// Wrapf adds context and a stack trace to an error without changing what
// errors.Is and errors.As see underneath.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Wrapf(err, format, args...)
}

// getBackendSuggestion returns helpful suggestions based on backend and error
func getBackendSuggestion(backend string, err error) string {
	errStr := err.Error()

	switch backend {
	case "vault":
		if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "403") {
			return "Check the token policy, or run 'chamber login' to store a fresh token"
		}
		if strings.Contains(errStr, "missing client token") {
			return "Set VAULT_TOKEN or SECRETS_TOKEN, or run 'chamber login'"
		}
	case "file":
		if strings.Contains(errStr, "invalid character") || strings.Contains(errStr, "unexpected end of JSON") {
			return "The secrets file is not valid JSON. Restore it from a backup or fix it by hand"
		}
	case "envdir":
		if strings.Contains(errStr, "permission denied") {
			return "Check permissions on the secrets directory (--secrets-dir)"
		}
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check VAULT_ADDR and your network"
	}

	return ""
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: fmt.Sprintf("Make sure '%s' is installed and in your PATH", command),
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Domain errors already read well
	if IsDomainError(err) {
		return err
	}

	var userErr UserError
	if errors.As(err, &userErr) {
		return userErr
	}
	var configErr ConfigError
	if errors.As(err, &configErr) {
		return configErr
	}
	var cmdErr CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Details:    errStr,
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Hint() != "" {
		return UserError{
			Message:    err.Error(),
			Suggestion: oopsErr.Hint(),
			Err:        err,
		}
	}

	return err
}

// Verbose renders an error with its full context and stack trace when one was
// captured. Used by the --debug boundary.
func Verbose(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := oops.AsOops(err); ok {
		return fmt.Sprintf("%+v", err)
	}

	var b strings.Builder
	b.WriteString(err.Error())
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&b, "\n  caused by (%T): %s", cause, cause.Error())
	}
	return b.String()
}
