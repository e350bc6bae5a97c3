package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
)

func NewReadCommand(cfg *config.Config) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "read SERVICE KEY",
		Short: "Read a specific secret",
		Long: `Read a single secret and print it with its metadata.

Examples:
  chamber read app/prod DB_PASSWORD
  export DB_PASSWORD=$(chamber read -q app/prod DB_PASSWORD)`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				secret, ok, err := s.Read(ctx, args[0], args[1])
				if err != nil || !ok {
					return err
				}
				if quiet {
					return printLines(cfg.Stdout, secret.Value)
				}
				m := secret.Metadata
				return printLines(cfg.Stdout,
					"Key\tValue\tVersion\tLastModified\tUser",
					fmt.Sprintf("%s\t%s\t%d\t%s\t%s", secret.Key, secret.Value, m.Version, formatTime(m.Modified), m.Owner),
				)
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Output only the secret value")

	return cmd
}
