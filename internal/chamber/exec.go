package chamber

import (
	"context"
	"io"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/execenv"
)

// ExecRequest describes one exec invocation.
type ExecRequest struct {
	Services     []string
	Command      []string
	Inherited    []string
	Pristine     bool
	Strict       bool
	StrictValue  string
	Mode         execenv.Mode
	BufferOutput bool
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// Exec runs a command with the secrets of every service injected into its
// environment. Services are merged in order; later services win.
func (s *Store) Exec(ctx context.Context, req ExecRequest) (execenv.Result, error) {
	if len(req.Command) == 0 {
		return execenv.Result{}, dserrors.ErrCommandMissing
	}
	sentinel := req.StrictValue
	if sentinel == "" {
		sentinel = execenv.DefaultStrictValue
	}

	env := execenv.NewEnvironment(req.Inherited, req.Pristine, req.Strict, sentinel)
	defer env.Destroy()

	for _, service := range req.Services {
		secrets, err := s.Secrets(ctx, service)
		if err != nil {
			return execenv.Result{}, err
		}
		if err := env.Merge(secrets); err != nil {
			return execenv.Result{}, err
		}
	}

	if req.Mode == execenv.ModeReplace {
		// Nothing runs after a successful replace, so release the store now.
		if err := s.Close(); err != nil {
			return execenv.Result{}, err
		}
	}

	return s.executor.Run(ctx, req.Command, env, execenv.Options{
		Mode:         req.Mode,
		BufferOutput: req.BufferOutput,
		Stdin:        req.Stdin,
		Stdout:       req.Stdout,
		Stderr:       req.Stderr,
	})
}
