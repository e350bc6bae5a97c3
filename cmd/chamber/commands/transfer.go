package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/format"
)

func NewExportCommand(cfg *config.Config) *cobra.Command {
	var (
		output   string
		name     string
		compact  bool
		sortKeys bool
	)

	cmd := &cobra.Command{
		Use:   "export SERVICE",
		Short: "Export a service's secrets",
		Long: fmt.Sprintf(`Export a service's secrets as a document.

Formats: %s

Examples:
  chamber export app/prod > prod.json
  chamber export --format dotenv -o .env app/dev`, strings.Join(format.Formats, ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !format.Supported(name) {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Unknown format: %s", name),
					Suggestion: "Use one of: " + strings.Join(format.Formats, ", "),
					Err:        dserrors.UnknownFormatError{Format: name},
				}
			}

			var buf bytes.Buffer
			err := withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				return s.Export(ctx, &buf, args[0], name, format.Options{Compact: compact, SortKeys: sortKeys})
			})
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cfg.Stdout.Write(buf.Bytes())
				return err
			}
			return os.WriteFile(output, buf.Bytes(), 0o600)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file ('-' for stdout)")
	cmd.Flags().StringVar(&name, "format", format.JSON, "Output format")
	cmd.Flags().BoolVarP(&compact, "compact-json", "c", false, "Compact JSON output")
	cmd.Flags().BoolVar(&sortKeys, "sort-keys", true, "Sort JSON keys")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return format.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func NewImportCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import SERVICE [FILE]",
		Short: "Import secrets from a JSON object",
		Long: `Import every key of a JSON object into SERVICE.

FILE defaults to standard input. Comments and trailing commas are allowed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cfg.Stdin
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return dserrors.UserError{
						Message: fmt.Sprintf("Cannot open %s", args[1]),
						Details: err.Error(),
						Err:     err,
					}
				}
				defer f.Close()
				in = f
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				n, err := s.Import(ctx, args[0], in)
				if err != nil {
					return err
				}
				cfg.Logger.Debug("Imported %d secrets", n)
				return nil
			})
		},
	}
}

// editorRunner opens path in an editor; replaced in tests.
var editorRunner = func(editor, path string, cfg *config.Config) error {
	fields := strings.Fields(editor)
	c := exec.Command(fields[0], append(fields[1:], path)...)
	c.Stdin = cfg.Stdin
	c.Stdout = cfg.Stdout
	c.Stderr = cfg.Stderr
	return c.Run()
}

func NewEditCommand(cfg *config.Config) *cobra.Command {
	var editor string

	cmd := &cobra.Command{
		Use:   "edit SERVICE",
		Short: "Edit a service's secrets as JSON in $VISUAL",
		Long: `Export SERVICE as JSON, open it in an editor, and import the result
if it changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if editor == "" {
				editor = os.Getenv("VISUAL")
			}
			if editor == "" {
				editor = os.Getenv("EDITOR")
			}
			if editor == "" {
				editor = "vi"
			}

			var original bytes.Buffer
			err := withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				return s.Export(ctx, &original, args[0], format.JSON, format.DefaultOptions())
			})
			if err != nil {
				return err
			}

			tmp, err := os.CreateTemp("", "chamber-edit-*.json")
			if err != nil {
				return fmt.Errorf("failed to create edit buffer: %w", err)
			}
			defer os.Remove(tmp.Name())
			if _, err := tmp.Write(original.Bytes()); err != nil {
				tmp.Close()
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}

			if err := editorRunner(editor, tmp.Name(), cfg); err != nil {
				return dserrors.CommandError{
					Command:    editor,
					Message:    err.Error(),
					Suggestion: "Set $VISUAL or pass --editor",
				}
			}

			edited, err := os.ReadFile(tmp.Name())
			if err != nil {
				return err
			}
			if bytes.Equal(edited, original.Bytes()) {
				cfg.Logger.Debug("No changes")
				return nil
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				_, err := s.Import(ctx, args[0], bytes.NewReader(edited))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&editor, "editor", "", "Editor command (default $VISUAL, $EDITOR, vi)")

	return cmd
}
