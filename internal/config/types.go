// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidTechnique is returned for an empty or duplicate technique name.
	ErrInvalidTechnique = errors.New("invalid technique")
	// ErrConsolePassword is returned when the console is enabled without a password.
	ErrConsolePassword = errors.New("console enabled without a password")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of the structured logger.
	LogLevel string

	// Config is the root configuration.
	Config struct {
		Server     ServerConfig      `json:"server" mapstructure:"server" toml:"server"`
		Techniques []TechniqueConfig `json:"techniques" mapstructure:"techniques" toml:"techniques"`
		Log        LogConfig         `json:"log" mapstructure:"log" toml:"log"`
		Feed       FeedConfig        `json:"feed" mapstructure:"feed" toml:"feed"`
		Console    ConsoleConfig     `json:"console" mapstructure:"console" toml:"console"`
	}

	// ServerConfig configures the command server.
	ServerConfig struct {
		Port               types.ListenPort         `json:"port" mapstructure:"port" toml:"port"`
		RestartDelay       types.RestartDelay       `json:"restart_delay" mapstructure:"restart_delay" toml:"restart_delay"`
		MaxRestartAttempts types.MaxRestartAttempts `json:"max_restart_attempts" mapstructure:"max_restart_attempts" toml:"max_restart_attempts"`
		AutoRestart        bool                     `json:"auto_restart" mapstructure:"auto_restart" toml:"auto_restart"`
		// Autostart starts listening as soon as `fxbridge serve` runs.
		Autostart bool `json:"autostart" mapstructure:"autostart" toml:"autostart"`
	}

	// TechniqueConfig seeds one effect.
	TechniqueConfig struct {
		Name    string `json:"name" mapstructure:"name" toml:"name"`
		Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	}

	// LogConfig configures the structured logger.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level" toml:"level"`
	}

	// FeedConfig configures the HTTP status feed.
	FeedConfig struct {
		Address string `json:"address" mapstructure:"address" toml:"address"`
		Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	}

	// ConsoleConfig configures the SSH operator console.
	ConsoleConfig struct {
		Host        string           `json:"host" mapstructure:"host" toml:"host"`
		Password    string           `json:"password" mapstructure:"password" toml:"password"`
		HostKeyPath string           `json:"host_key_path" mapstructure:"host_key_path" toml:"host_key_path"`
		Port        types.ListenPort `json:"port" mapstructure:"port" toml:"port"`
		Enabled     bool             `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               cmdserver.DefaultPort,
			RestartDelay:       cmdserver.DefaultRestartDelay,
			MaxRestartAttempts: cmdserver.DefaultMaxRestartAttempts,
			AutoRestart:        true,
			Autostart:          true,
		},
		Techniques: []TechniqueConfig{
			{Name: "MotionBlur"},
			{Name: "Bloom"},
		},
		Log:  LogConfig{Level: LogLevelInfo},
		Feed: FeedConfig{Address: "127.0.0.1:7778"},
		Console: ConsoleConfig{
			Host: "127.0.0.1",
			Port: 2222,
		},
	}
}

// String returns the level name.
func (l LogLevel) String() string { return string(l) }

// Validate returns an error wrapping ErrInvalidLogLevel for unknown levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, string(l))
	}
}

// Validate checks the parts of the configuration CUE cannot express, plus
// every range again for configs that did not come from a file.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ServerSettings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Console.Enabled {
		if err := c.Console.Port.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("console.port: %w", err))
		}
		if c.Console.Password == "" {
			errs = append(errs, fmt.Errorf("console.password: %w", ErrConsolePassword))
		}
	}

	seen := make(map[string]int, len(c.Techniques))
	for i, tech := range c.Techniques {
		name := strings.TrimSpace(tech.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("techniques[%d]: %w: empty name", i, ErrInvalidTechnique))
			continue
		}
		if first, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("techniques[%d]: %w: %q duplicates techniques[%d]", i, ErrInvalidTechnique, name, first))
			continue
		}
		seen[name] = i
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ServerSettings converts the server section for the controller.
func (c *Config) ServerSettings() cmdserver.Settings {
	return cmdserver.Settings{
		Port:               c.Server.Port,
		RestartDelay:       c.Server.RestartDelay,
		MaxRestartAttempts: c.Server.MaxRestartAttempts,
		AutoRestart:        c.Server.AutoRestart,
	}
}

// Targets converts the techniques list into effect seeds.
func (c *Config) Targets() []effects.Target {
	out := make([]effects.Target, 0, len(c.Techniques))
	for _, t := range c.Techniques {
		out = append(out, effects.Target{Name: strings.TrimSpace(t.Name), Enabled: t.Enabled})
	}
	return out
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and every field error for errors.Is/As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
