package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/systmms/chamber/internal/config"
)

// NewRootCommand builds the chamber command tree. cfg is filled in before any
// subcommand runs.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	var (
		configFile string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "chamber",
		Short: "Store secrets in a file, a directory tree or Vault",
		Long: `chamber stores key/value secrets grouped by service paths such as
"app/prod/db" in one of three backends: a JSON file (file), a directory tree
(envdir) or a Vault KV v2 engine (vault). Secrets can be exported, injected
into a command's environment, backed up and restored.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(viper.New(), cmd.Flags(), config.LoadOptions{
				ConfigFile: configFile,
				EnvFile:    envFile,
				EnvFileSet: cmd.Flags().Changed("env-file"),
				Stdin:      cmd.InOrStdin(),
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("backend", "b", config.DefaultBackend, "Backend: file, envdir or vault [$SECRETS_BACKEND]")
	pf.StringP("secrets-file", "f", config.DefaultSecretsFile, "Secrets JSON file for the file backend [$SECRETS_FILE]")
	pf.StringP("secrets-dir", "s", config.DefaultSecretsDir, "Secrets directory for the envdir backend [$SECRETS_DIR]")
	pf.String("vault-addr", "", "Vault address [$VAULT_ADDR]")
	pf.StringP("token", "t", "", "Vault token [$SECRETS_TOKEN, $VAULT_TOKEN]")
	pf.StringP("root", "r", config.DefaultRoot, "Vault KV v2 mount [$SECRETS_ROOT]")
	pf.BoolP("exists", "e", false, "Fail when a service or key does not exist (default)")
	pf.BoolP("if-exists", "E", false, "Skip services or keys that do not exist [$CHAMBER_REQUIRE_EXISTS=false]")
	pf.Bool("fold-case", false, "Lower-case every service and key name [$CHAMBER_FOLD_CASE]")
	pf.BoolP("debug", "d", false, "Debug output with detailed error diagnostics [$CHAMBER_DEBUG]")
	pf.Bool("no-color", false, "Disable colored output [$NO_COLOR]")
	pf.String("metrics-file", "", "Write backend operation metrics to this Prometheus textfile [$CHAMBER_METRICS_FILE]")
	pf.StringVar(&configFile, "config", "", "Config file (default chamber.yaml in . or ~/.config/chamber) [$CHAMBER_CONFIG]")
	pf.StringVar(&envFile, "env-file", config.DefaultEnvFile, "Dotenv file with default settings")

	root.AddCommand(
		NewReadCommand(cfg),
		NewWriteCommand(cfg),
		NewDeleteCommand(cfg),
		NewListCommand(cfg),
		NewListServicesCommand(cfg),
		NewFindCommand(cfg),
		NewPruneCommand(cfg),
		NewEnvCommand(cfg),
		NewExecCommand(cfg),
		NewExportCommand(cfg),
		NewImportCommand(cfg),
		NewEditCommand(cfg),
		NewBackupCommand(cfg),
		NewRestoreCommand(cfg),
		NewLoginCommand(cfg),
		NewLogoutCommand(cfg),
		NewCompletionCommand(cfg),
		NewVersionCommand(cfg, version),
	)

	return root
}
