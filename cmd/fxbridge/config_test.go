// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/pkg/types"
)

func TestConfigInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	stdout, _, err := runCLI(t, context.Background(), "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(stdout, "Created default configuration") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	stdout, _, err = runCLI(t, context.Background(), "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("second config init failed: %v", err)
	}
	if !strings.Contains(stdout, "already exists") {
		t.Errorf("second init stdout = %q, want already exists", stdout)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.cue")
	stdout, _, err := runCLI(t, context.Background(), "config", "path", "--config", path)
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if strings.TrimSpace(stdout) != path {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(stdout), path)
	}
}

func TestConfigShowRedactsPassword(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Server.Port = 7801
	cfg.Console.Enabled = true
	cfg.Console.Password = "hunter2"
	path := writeConfig(t, cfg)

	stdout, _, err := runCLI(t, context.Background(), "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{path, "7801", "Bloom", "********"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "hunter2") {
		t.Error("show output leaks the console password")
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Server.Port = 7802
	path := writeConfig(t, cfg)

	tests := []struct {
		format string
		want   []string
	}{
		{"cue", []string{"server:", "7802"}},
		{"toml", []string{"[server]", "port = 7802"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			stdout, _, err := runCLI(t, context.Background(), "config", "dump", "--config", path, "--format", tt.format)
			if err != nil {
				t.Fatalf("config dump failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("dump output missing %q:\n%s", want, stdout)
				}
			}
		})
	}

	if _, _, err := runCLI(t, context.Background(), "config", "dump", "--config", path, "--format", "yaml"); err == nil {
		t.Error("dump --format yaml succeeded, want error")
	}
}

func TestConfigSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value string
		check      func(*config.Config) bool
	}{
		{"server.port", "7803", func(c *config.Config) bool { return c.Server.Port == 7803 }},
		{"server.restart_delay", "12", func(c *config.Config) bool { return c.Server.RestartDelay == 12 }},
		{"server.max_restart_attempts", "3", func(c *config.Config) bool { return c.Server.MaxRestartAttempts == 3 }},
		{"server.auto_restart", "false", func(c *config.Config) bool { return !c.Server.AutoRestart }},
		{"server.autostart", "false", func(c *config.Config) bool { return !c.Server.Autostart }},
		{"log.level", "debug", func(c *config.Config) bool { return c.Log.Level == config.LogLevelDebug }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, config.DefaultConfig())

			if _, _, err := runCLI(t, context.Background(), "config", "set", "--config", path, tt.key, tt.value); err != nil {
				t.Fatalf("config set failed: %v", err)
			}
			cfg, _, err := config.NewProvider().Load(context.Background(), config.LoadOptions{ConfigFilePath: path})
			if err != nil {
				t.Fatalf("reload failed: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("%s = %s not persisted", tt.key, tt.value)
			}
		})
	}
}

func TestConfigSetRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct{ key, value string }{
		{"server.port", "0"},
		{"server.port", "http"},
		{"server.restart_delay", "61"},
		{"server.max_restart_attempts", "0"},
		{"server.auto_restart", "maybe"},
		{"log.level", "trace"},
		{"feed.address", "127.0.0.1:1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, config.DefaultConfig())
			before, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			_, _, err = runCLI(t, context.Background(), "config", "set", "--config", path, tt.key, tt.value)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != types.ExitConfig {
				t.Fatalf("err = %v, want ExitError with code %d", err, types.ExitConfig)
			}

			after, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(before) != string(after) {
				t.Error("config file changed after a rejected set")
			}
		})
	}
}

func TestConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.cue")
	_, _, err := runCLI(t, context.Background(), "config", "show", "--config", path)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitConfig {
		t.Fatalf("err = %v, want ExitError with code %d", err, types.ExitConfig)
	}
}
