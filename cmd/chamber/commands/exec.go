package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/execenv"
)

func NewEnvCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "env SERVICE",
		Short: "Print a service's secrets as shell export statements",
		Long: `Print a service's secrets as shell export statements.

Example:
  eval "$(chamber env app/prod)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				lines, err := s.EnvLines(ctx, args[0])
				if err != nil {
					return err
				}
				return printLines(cfg.Stdout, lines...)
			})
		},
	}
}

func NewExecCommand(cfg *config.Config) *cobra.Command {
	var (
		pristine     bool
		strict       bool
		strictValue  string
		child        bool
		bufferOutput bool
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] SERVICE [SERVICE...] -- COMMAND [ARG...]",
		Short: "Run a command with secrets loaded into its environment",
		Long: `Run a command with the secrets of one or more services injected as
environment variables. Keys are upper-cased; later services win.

With --strict, every inherited variable whose value is the strict value
(default "chamberme") must be supplied by one of the services.

By default the command replaces the chamber process. Use --child to run it
as a subprocess and forward its exit code.

Examples:
  chamber exec app/prod -- ./server
  chamber exec --child --strict app/common app/prod -- env`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			if dash < 0 {
				return dserrors.UserError{
					Message:    "exec requires '--' argument separator",
					Suggestion: "chamber exec SERVICE [SERVICE...] -- COMMAND [ARG...]",
				}
			}

			mode := execenv.ModeReplace
			if child {
				mode = execenv.ModeChild
			}
			req := chamber.ExecRequest{
				Services:     args[:dash],
				Command:      args[dash:],
				Inherited:    os.Environ(),
				Pristine:     pristine,
				Strict:       strict,
				StrictValue:  strictValue,
				Mode:         mode,
				BufferOutput: bufferOutput,
				Stdin:        cfg.Stdin,
				Stdout:       cfg.Stdout,
				Stderr:       cfg.Stderr,
			}

			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				res, err := s.Exec(ctx, req)
				if err != nil || res.Replaced {
					return err
				}
				if bufferOutput {
					if _, err := cfg.Stdout.Write(res.Stdout); err != nil {
						return err
					}
					if _, err := cfg.Stderr.Write(res.Stderr); err != nil {
						return err
					}
				}
				if res.ExitCode != 0 {
					return ExitCodeError{Code: res.ExitCode}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&pristine, "pristine", false, "Do not inherit the parent environment")
	cmd.Flags().BoolVar(&strict, "strict", false, "Require services to override inherited variables set to the strict value")
	cmd.Flags().StringVar(&strictValue, "strict-value", execenv.DefaultStrictValue, "Sentinel value used by --strict")
	cmd.Flags().BoolVar(&child, "child", false, "Run the command as a subprocess instead of replacing chamber")
	cmd.Flags().BoolVar(&bufferOutput, "buffer-output", false, "Buffer the subprocess output until it exits (with --child)")

	return cmd
}
