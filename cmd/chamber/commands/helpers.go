package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/systmms/chamber/internal/backends"
	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/execenv"
	"github.com/systmms/chamber/internal/metrics"
)

// timeLayout formats LastModified columns.
const timeLayout = "2006-01-02 15:04:05"

// ExitCodeError carries a child process exit code to main.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// registry is replaced in tests.
var registry = backends.NewRegistry

// execFunc overrides process replacement in tests.
var execFunc execenv.ExecFunc

func openStore(cfg *config.Config) (*chamber.Store, error) {
	reg := registry()
	if !reg.IsSupported(cfg.Backend) {
		return nil, dserrors.ConfigError{
			Field:      "backend",
			Value:      cfg.Backend,
			Message:    "unknown backend",
			Suggestion: "Use one of: " + strings.Join(reg.GetSupportedTypes(), ", "),
		}
	}

	backend, err := reg.Open(cfg.Backend, backends.Options{
		SecretsFile: cfg.SecretsFile,
		SecretsDir:  cfg.SecretsDir,
		VaultAddr:   cfg.VaultAddr,
		Token:       cfg.Token,
		Root:        cfg.Root,
	})
	if err != nil {
		return nil, err
	}

	var onClose func() error
	if cfg.MetricsFile != "" {
		m := metrics.New()
		backend = metrics.Instrument(backend, m)
		onClose = func() error { return m.WriteTextfile(cfg.MetricsFile) }
	}

	executor := execenv.New(cfg.Logger)
	if execFunc != nil {
		executor = executor.WithExecFunc(execFunc)
	}

	cfg.Logger.Debug("Using %s backend", cfg.Backend)
	return chamber.New(backend, chamber.Options{
		Policy:   cfg.Policy(),
		FoldCase: cfg.FoldCase,
		Logger:   cfg.Logger,
		Executor: executor,
		OnClose:  onClose,
	}), nil
}

// withStore opens the store, runs fn and closes the store on every path.
func withStore(ctx context.Context, cfg *config.Config, fn func(context.Context, *chamber.Store) error) (err error) {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, store)
}

func printLines(w io.Writer, lines ...string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// confirm asks a yes/no question on stderr. Without a terminal the answer is
// no unless force was given.
func confirm(cfg *config.Config, prompt string, in io.Reader) (bool, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, dserrors.UserError{
			Message:    prompt,
			Suggestion: "Re-run with --force to confirm without a terminal",
		}
	}
	fmt.Fprintf(cfg.Stderr, "%s Continue? [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Fscanln(f, &answer); err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func aborted() error {
	return dserrors.UserError{Message: "Aborted!"}
}
