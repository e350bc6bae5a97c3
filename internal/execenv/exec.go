// Package execenv launches a command with secrets injected into its
// environment, either as a child process or by replacing the current process.
package execenv

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/logging"
)

// Mode selects how the command is launched.
type Mode string

const (
	// ModeChild spawns the command and waits for it.
	ModeChild Mode = "child"
	// ModeReplace replaces the current process image.
	ModeReplace Mode = "replace"
)

// ExecFunc replaces the process image. On success it does not return.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Options configures one launch.
type Options struct {
	Mode         Mode
	BufferOutput bool
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// Result is the outcome of a launch. Replaced is set only when an injected
// ExecFunc returned without error.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Replaced bool
}

// Executor runs commands with a prepared Environment.
type Executor struct {
	logger   *logging.Logger
	execFn   ExecFunc
	lookPath func(string) (string, error)
}

// New creates an executor that uses unix.Exec for replace mode.
func New(logger *logging.Logger) *Executor {
	return &Executor{
		logger:   logger,
		execFn:   unix.Exec,
		lookPath: exec.LookPath,
	}
}

// WithExecFunc swaps the process-replacement call.
func (e *Executor) WithExecFunc(fn ExecFunc) *Executor {
	e.execFn = fn
	return e
}

// Run launches command. A non-zero child exit is reported in Result, not as
// an error.
func (e *Executor) Run(ctx context.Context, command []string, env *Environment, opts Options) (Result, error) {
	if len(command) == 0 {
		return Result{}, dserrors.ErrCommandMissing
	}
	if err := env.Check(); err != nil {
		return Result{}, err
	}

	path, err := e.lookPath(command[0])
	if err != nil {
		return Result{}, dserrors.WrapCommandNotFound(command[0], err)
	}

	vars, err := env.Environ()
	if err != nil {
		return Result{}, dserrors.Wrapf(err, "opening secret values")
	}
	e.logDebug(command, env, vars)
	env.Destroy()

	if opts.Mode == ModeReplace {
		if err := e.execFn(path, command, vars); err != nil {
			return Result{}, dserrors.CommandError{
				Command:    strings.Join(command, " "),
				Message:    err.Error(),
				Suggestion: "Check that the command is executable",
			}
		}
		return Result{Replaced: true}, nil
	}
	return e.runChild(ctx, path, command, vars, opts)
}

func (e *Executor) runChild(ctx context.Context, path string, command, vars []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, path, command[1:]...)
	cmd.Env = vars
	cmd.Stdin = opts.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	var stdout, stderr bytes.Buffer
	if opts.BufferOutput {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = writerOr(opts.Stdout, os.Stdout)
		cmd.Stderr = writerOr(opts.Stderr, os.Stderr)
	}

	var res Result
	err := cmd.Run()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, dserrors.CommandError{
				Command:    strings.Join(command, " "),
				Message:    err.Error(),
				Suggestion: "Check the command output above for details",
			}
		}
		res.ExitCode = exitCode(exitErr)
	}
	return res, nil
}

func exitCode(err *exec.ExitError) int {
	if status, ok := err.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}
	if code := err.ExitCode(); code > 0 {
		return code
	}
	return 1
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

func (e *Executor) logDebug(command []string, env *Environment, vars []string) {
	if e.logger == nil || !e.logger.IsDebug() {
		return
	}
	values := ParseEnviron(vars)
	names := env.Names()
	secrets := make([]string, 0, len(names))
	for _, name := range names {
		secrets = append(secrets, values[name])
	}
	e.logger.Debug("Executing command: %s", logging.Redact(strings.Join(command, " "), secrets))
	if expected := env.Expected(); len(expected) > 0 {
		e.logger.Debug("Strict variables supplied: %s", strings.Join(expected, ", "))
	}
	for _, name := range names {
		e.logger.Debug("  %s=%s", name, logging.Secret(values[name]))
	}
}
