package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/archive"
	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
)

// now is replaced in tests.
var now = time.Now

func NewBackupCommand(cfg *config.Config) *cobra.Command {
	var fileName string

	cmd := &cobra.Command{
		Use:   "backup [OUTPUT-DIR]",
		Short: "Write every secret to a gzipped tarball",
		Long: `Write every service to a gzipped tarball in OUTPUT-DIR (default ".").

The file is named <timestamp>_chamber.tgz unless --filename is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				file, err := archive.Backup(ctx, s.Backend(), dir, fileName, now())
				if err != nil {
					return err
				}
				return printLines(cfg.Stdout, file)
			})
		},
	}

	cmd.Flags().StringVarP(&fileName, "filename", "n", "", "Backup file name (.tgz is appended when missing)")

	return cmd
}

func NewRestoreCommand(cfg *config.Config) *cobra.Command {
	var (
		patch bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore secrets from a backup tarball",
		Long: `Restore secrets from a tarball written by 'chamber backup'.

Unless --patch is given, every existing secret is deleted first. The archive
is fully validated before anything is deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !patch {
				ok, err := confirm(cfg, "Restore will DESTRUCTIVELY overwrite existing data.", cfg.Stdin)
				if err != nil {
					return err
				}
				if !ok {
					return aborted()
				}
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				n, err := archive.Restore(ctx, s.Backend(), args[0], archive.RestoreOptions{
					Patch:  patch,
					Logger: cfg.Logger,
				})
				if err != nil {
					return err
				}
				return printLines(cfg.Stdout, fmt.Sprintf("Restored %d services from %s", n, args[0]))
			})
		},
	}

	cmd.Flags().BoolVarP(&patch, "patch", "p", false, "Merge into existing data instead of replacing it")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass confirmation")

	return cmd
}
