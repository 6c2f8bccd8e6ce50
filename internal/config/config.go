// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/fxbridge/fxbridge/internal/cueutil"
	"github.com/fxbridge/fxbridge/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "fxbridge"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: FXBRIDGE_SERVER_PORT.
	EnvPrefix = "FXBRIDGE"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the fxbridge directory under the platform config root.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(root, AppName), nil
}

// ResolvePath returns the file Load reads for opts, whether or not it exists.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions builds a fresh viper instance per call: defaults, then the
// CUE file (when present), then FXBRIDGE_* environment overrides.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	resolved := ""
	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolved = path
	case opts.ConfigFilePath != "":
		// An explicit path must exist; the default location is optional.
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Run 'fxbridge config init --config " + path + "' to create it").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.InvalidSettingId).
			WithSuggestion("Technique names must be unique and non-empty").
			WithSuggestion("Check FXBRIDGE_* environment overrides").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolved, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", int(d.Server.Port))
	v.SetDefault("server.auto_restart", d.Server.AutoRestart)
	v.SetDefault("server.restart_delay", int(d.Server.RestartDelay))
	v.SetDefault("server.max_restart_attempts", int(d.Server.MaxRestartAttempts))
	v.SetDefault("server.autostart", d.Server.Autostart)
	techniques := make([]map[string]any, 0, len(d.Techniques))
	for _, t := range d.Techniques {
		techniques = append(techniques, map[string]any{"name": t.Name, "enabled": t.Enabled})
	}
	v.SetDefault("techniques", techniques)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("feed.enabled", d.Feed.Enabled)
	v.SetDefault("feed.address", d.Feed.Address)
	v.SetDefault("console.enabled", d.Console.Enabled)
	v.SetDefault("console.host", d.Console.Host)
	v.SetDefault("console.port", int(d.Console.Port))
	v.SetDefault("console.password", d.Console.Password)
	v.SetDefault("console.host_key_path", d.Console.HostKeyPath)
}

// loadCUEIntoViper validates path against #Config and merges it over the
// defaults already in v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Compare it with 'fxbridge config show'").
		Wrap(err).
		BuildError()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the defaults to path unless a file is already
// there. It reports whether a file was created.
func CreateDefaultConfig(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
