package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
)

func NewWriteCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write SERVICE KEY VALUE",
		Short: "Write a secret",
		Long: `Write a secret, creating the service if needed.

A VALUE of "-" reads the value from standard input, byte for byte.

Examples:
  chamber write app/prod DB_PASSWORD hunter2
  cat cert.pem | chamber write app/prod TLS_CERT -`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[2]
			if value == "-" {
				data, err := io.ReadAll(cfg.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read value from stdin: %w", err)
				}
				value = string(data)
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				return s.Write(ctx, args[0], args[1], value)
			})
		},
	}

	return cmd
}

func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SERVICE KEY",
		Short: "Delete a secret, including all versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				return s.Delete(ctx, args[0], args[1])
			})
		},
	}
}
