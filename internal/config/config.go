// Package config resolves chamber's runtime settings.
//
// Precedence, highest first: command-line flag, environment variable, config
// file (chamber.yaml), env file (.chamber.env), built-in default.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/logging"
	"github.com/systmms/chamber/internal/policy"
)

// Setting keys.
const (
	KeyBackend       = "backend"
	KeySecretsFile   = "secrets_file"
	KeySecretsDir    = "secrets_dir"
	KeyVaultAddr     = "vault_addr"
	KeyToken         = "token"
	KeyRoot          = "root"
	KeyRequireExists = "require_exists"
	KeyFoldCase      = "fold_case"
	KeyDebug         = "debug"
	KeyNoColor       = "no_color"
	KeyMetricsFile   = "metrics_file"
)

// Defaults.
const (
	DefaultBackend     = "vault"
	DefaultSecretsFile = ".secrets.json"
	DefaultSecretsDir  = "/etc/local_chamber"
	DefaultRoot        = "chamber"
	DefaultConfigName  = "chamber"
	DefaultEnvFile     = ".chamber.env"
)

// EnvConfigFile names the config file when --config is not given.
const EnvConfigFile = "CHAMBER_CONFIG"

// envNames lists the environment variables bound to each key, in priority
// order.
var envNames = map[string][]string{
	KeyBackend:       {"SECRETS_BACKEND"},
	KeySecretsFile:   {"SECRETS_FILE"},
	KeySecretsDir:    {"SECRETS_DIR"},
	KeyVaultAddr:     {"VAULT_ADDR"},
	KeyToken:         {"SECRETS_TOKEN", "VAULT_TOKEN"},
	KeyRoot:          {"SECRETS_ROOT"},
	KeyRequireExists: {"CHAMBER_REQUIRE_EXISTS"},
	KeyFoldCase:      {"CHAMBER_FOLD_CASE"},
	KeyDebug:         {"CHAMBER_DEBUG"},
	KeyNoColor:       {"NO_COLOR"},
	KeyMetricsFile:   {"CHAMBER_METRICS_FILE"},
}

// flagNames maps keys to the persistent flag that sets them.
var flagNames = map[string]string{
	KeyBackend:     "backend",
	KeySecretsFile: "secrets-file",
	KeySecretsDir:  "secrets-dir",
	KeyVaultAddr:   "vault-addr",
	KeyToken:       "token",
	KeyRoot:        "root",
	KeyFoldCase:    "fold-case",
	KeyDebug:       "debug",
	KeyNoColor:     "no-color",
	KeyMetricsFile: "metrics-file",
}

// Config holds the resolved runtime configuration.
type Config struct {
	Backend       string
	SecretsFile   string
	SecretsDir    string
	VaultAddr     string
	Token         string
	Root          string
	RequireExists bool
	FoldCase      bool
	Debug         bool
	NoColor       bool
	MetricsFile   string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string

	Logger *logging.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Policy returns the existence policy selected by RequireExists.
func (c *Config) Policy() policy.Policy {
	return policy.Policy{RequireExists: c.RequireExists}
}

// SetDefaults installs built-in defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, DefaultBackend)
	v.SetDefault(KeySecretsFile, DefaultSecretsFile)
	v.SetDefault(KeySecretsDir, DefaultSecretsDir)
	v.SetDefault(KeyVaultAddr, "")
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyRoot, DefaultRoot)
	v.SetDefault(KeyRequireExists, true)
	v.SetDefault(KeyFoldCase, false)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyMetricsFile, "")
}

// SetupEnv binds every key to its environment variables.
func SetupEnv(v *viper.Viper) error {
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}
	return nil
}

// ApplyEnvFile lifts matching variables from a dotenv file above the built-in
// defaults. The file is never exported to the process environment. A missing
// file is ignored unless required.
func ApplyEnvFile(v *viper.Viper, path string, required bool) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return dserrors.ConfigError{
			Field:      "env_file",
			Value:      path,
			Message:    err.Error(),
			Suggestion: "Env files hold NAME=value lines, e.g. SECRETS_BACKEND=file",
		}
	}
	for key, names := range envNames {
		for _, name := range names {
			if val, ok := values[name]; ok {
				v.SetDefault(key, val)
				break
			}
		}
	}
	return nil
}

// ReadConfigFile reads path, or searches the standard locations when path is
// empty. Not finding a file during the search is fine.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return dserrors.ConfigError{
				Field:      "config",
				Value:      path,
				Message:    err.Error(),
				Suggestion: "Check that the config file exists and is valid YAML",
			}
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/chamber")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return dserrors.ConfigError{
				Field:   "config",
				Value:   v.ConfigFileUsed(),
				Message: err.Error(),
			}
		}
	}
	return nil
}

// BindFlags binds the persistent flags to their keys. The paired
// --exists/--if-exists switches are resolved separately by Load.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagNames {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadOptions are the inputs to Load that do not come from viper.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
	// EnvFileSet is true when the env file was named explicitly and must exist.
	EnvFileSet bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// Load resolves the configuration from v, flags, the environment and files.
func Load(v *viper.Viper, flags *pflag.FlagSet, opts LoadOptions) (*Config, error) {
	SetDefaults(v)

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := ApplyEnvFile(v, envFile, opts.EnvFileSet); err != nil {
		return nil, err
	}
	if err := SetupEnv(v); err != nil {
		return nil, err
	}
	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(EnvConfigFile)
	}
	if err := ReadConfigFile(v, configFile); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, err
		}
		if err := applyExistsFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Backend:       strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		SecretsFile:   v.GetString(KeySecretsFile),
		SecretsDir:    v.GetString(KeySecretsDir),
		VaultAddr:     v.GetString(KeyVaultAddr),
		Token:         v.GetString(KeyToken),
		Root:          v.GetString(KeyRoot),
		RequireExists: v.GetBool(KeyRequireExists),
		FoldCase:      v.GetBool(KeyFoldCase),
		Debug:         v.GetBool(KeyDebug),
		NoColor:       v.GetBool(KeyNoColor),
		MetricsFile:   v.GetString(KeyMetricsFile),
		ConfigFile:    v.ConfigFileUsed(),
		Stdin:         opts.Stdin,
		Stdout:        opts.Stdout,
		Stderr:        opts.Stderr,
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	cfg.Logger = logging.NewWithWriter(cfg.Stderr, cfg.Debug, cfg.NoColor)
	return cfg, nil
}

func applyExistsFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	exists := flags.Lookup("exists")
	ifExists := flags.Lookup("if-exists")
	existsSet := exists != nil && exists.Changed
	ifExistsSet := ifExists != nil && ifExists.Changed
	switch {
	case existsSet && ifExistsSet:
		return dserrors.UserError{
			Message:    "--exists and --if-exists cannot be combined",
			Suggestion: "Use --exists to fail on missing entries or --if-exists to skip them",
		}
	case existsSet:
		v.Set(KeyRequireExists, true)
	case ifExistsSet:
		v.Set(KeyRequireExists, false)
	}
	return nil
}
