package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/errors"
)

// newViperInstance creates a new Viper instance with standard maestro
// configuration: environment variable prefix (MAESTRO_), key replacer, and
// defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("planner.risk_tolerance", def.Planner.RiskTolerance)

	v.SetDefault("execution.timeout", def.Execution.Timeout.String())
	v.SetDefault("execution.max_retry_attempts", def.Execution.MaxRetryAttempts)
	v.SetDefault("execution.retry_backoff", def.Execution.RetryBackoff.String())
	v.SetDefault("execution.security_level", def.Execution.SecurityLevel)
	v.SetDefault("execution.memory_limit_mb", def.Execution.MemoryLimitMB)

	v.SetDefault("oversight.auto_approval_level", def.Oversight.AutoApprovalLevel)
	v.SetDefault("oversight.approval_timeout", def.Oversight.ApprovalTimeout.String())

	v.SetDefault("state.workspace", def.State.Workspace)
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

// unmarshalAndValidate unmarshals viper config into Config struct and
// validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (MAESTRO_* prefix)
//  2. Project config (.maestro/config.yaml)
//  3. Global config (~/.maestro/config.yaml)
//  4. Built-in defaults
//
// The function returns an error only for actual configuration problems,
// not for missing config files (which are expected in many scenarios).
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	// Global config provides user-wide defaults, project config overrides
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Dur("execution.timeout", cfg.Execution.Timeout).
		Dur("oversight.approval_timeout", cfg.Oversight.ApprovalTimeout).
		Str("oversight.auto_approval_level", cfg.Oversight.AutoApprovalLevel).
		Msg("configuration loaded")

	return cfg, nil
}

// loadGlobalConfig attempts to load the global config file
// (~/.maestro/config.yaml). Missing files are skipped silently.
func loadGlobalConfig(v *viper.Viper) error {
	globalPath, ok := globalConfigPathIfExists()
	if !ok {
		return nil
	}

	v.SetConfigFile(globalPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig attempts to merge the project config file
// (.maestro/config.yaml in the working directory). Missing files are skipped.
func loadProjectConfig(v *viper.Viper) error {
	projectPath := ProjectConfigPath()
	if !fileExists(projectPath) {
		return nil
	}

	v.SetConfigFile(projectPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// globalConfigPathIfExists returns the global config path if it exists.
func globalConfigPathIfExists() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(home, constants.MaestroHome, constants.ConfigFileName+".yaml")
	return path, fileExists(path)
}

// ProjectConfigPath returns the relative path to the project configuration
// file. This is always .maestro/config.yaml relative to the project root.
func ProjectConfigPath() string {
	return filepath.Join(constants.ProjectConfigDir, constants.ConfigFileName+".yaml")
}

// fileExists reports whether the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
