package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/chamber/internal/chamber"
	"github.com/systmms/chamber/internal/config"
)

func NewListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list SERVICE",
		Short: "List the secrets set for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				entries, err := s.List(ctx, args[0])
				if err != nil {
					return err
				}
				return printLines(cfg.Stdout, listTable(entries)...)
			})
		},
	}
}

// listTable pads the key column with tabs to a multiple of eight characters.
func listTable(entries []chamber.Entry) []string {
	width := 0
	for _, e := range entries {
		if len(e.Key) > width {
			width = len(e.Key)
		}
	}
	tabs := width/8 + 1

	lines := []string{"Key" + strings.Repeat("\t", tabs) + "Version\t\tLastModified\t\tUser"}
	for _, e := range entries {
		pad := strings.Repeat("\t", tabs-len(e.Key)/8)
		lines = append(lines, fmt.Sprintf("%s%s%d\t\t%s\t%s",
			e.Key, pad, e.Metadata.Version, formatTime(e.Metadata.Modified), e.Metadata.Owner))
	}
	return lines
}

func NewListServicesCommand(cfg *config.Config) *cobra.Command {
	var withSecrets bool

	cmd := &cobra.Command{
		Use:   "list-services [FILTER]",
		Short: "List services",
		Long: `List every service holding at least one secret.

FILTER keeps services whose name starts with it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				services, err := s.ListServices(ctx, filter, withSecrets)
				if err != nil {
					return err
				}
				return printLines(cfg.Stdout, append([]string{"Service"}, services...)...)
			})
		},
	}

	cmd.Flags().BoolVarP(&withSecrets, "secrets", "k", false, "Include secret names in the list")

	return cmd
}

func NewFindCommand(cfg *config.Config) *cobra.Command {
	var opts chamber.FindOptions

	cmd := &cobra.Command{
		Use:   "find PATTERN",
		Short: "Find a secret across all services",
		Long: `Find secrets by key, or by value with --by-value.

Without --regex the pattern must match the whole key or value.

Examples:
  chamber find DB_PASSWORD
  chamber find --regex '^DB_'
  chamber find --by-value hunter2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				matches, err := s.Find(ctx, args[0], opts)
				if err != nil {
					return err
				}
				lines := append([]string{chamber.FindHeader(opts)}, chamber.FindLines(matches, opts)...)
				return printLines(cfg.Stdout, lines...)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Regex, "regex", false, "Treat PATTERN as a regular expression")
	cmd.Flags().BoolVarP(&opts.ByValue, "by-value", "v", false, "Match secret values instead of keys")

	return cmd
}

func NewPruneCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "prune SERVICE",
		Short: "Delete a service and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				ok, err := confirm(cfg, fmt.Sprintf("About to DELETE %s and all subkeys.", args[0]), cfg.Stdin)
				if err != nil {
					return err
				}
				if !ok {
					return aborted()
				}
			}
			return withStore(cmd.Context(), cfg, func(ctx context.Context, s *chamber.Store) error {
				n, err := s.Prune(ctx, args[0])
				if err != nil {
					return err
				}
				cfg.Logger.Info("Deleted %d secrets", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass confirmation")

	return cmd
}
