package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/systmms/chamber/internal/backends/vault"
	"github.com/systmms/chamber/internal/config"
	dserrors "github.com/systmms/chamber/internal/errors"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Vault token in the OS keyring",
		Long: `Store a Vault token in the OS keyring for the configured Vault address.

The token is read from --token, $SECRETS_TOKEN or $VAULT_TOKEN, otherwise it is
prompted for without echo. Stored tokens are used when no token is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := vault.ResolveAddress(cfg.VaultAddr)
			if err != nil {
				return err
			}

			token := cfg.Token
			if token == "" {
				token, err = readToken(cfg, addr)
				if err != nil {
					return err
				}
			}
			if token == "" {
				return dserrors.UserError{
					Message:    "No token given",
					Suggestion: "Pass --token or enter a token at the prompt",
				}
			}

			if err := vault.SaveToken(addr, token); err != nil {
				return dserrors.UserError{
					Message:    "Cannot store token",
					Details:    err.Error(),
					Suggestion: "Check that an OS keyring (Keychain, Secret Service, Credential Manager) is available",
					Err:        err,
				}
			}
			cfg.Logger.Info("Token stored for %s", addr)
			return nil
		},
	}

	return cmd
}

func readToken(cfg *config.Config, addr string) (string, error) {
	if f, ok := cfg.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(cfg.Stderr, "Vault token for %s: ", addr)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cfg.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(cfg.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}

func NewLogoutCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Vault token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := vault.ResolveAddress(cfg.VaultAddr)
			if err != nil {
				return err
			}
			removed, err := vault.DeleteToken(addr)
			if err != nil {
				return err
			}
			if !removed {
				cfg.Logger.Warn("No token stored for %s", addr)
				return nil
			}
			cfg.Logger.Info("Token removed for %s", addr)
			return nil
		},
	}
}
