// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GenerateCUE renders cfg as a config.cue document that validates against
// the embedded schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fxbridge configuration file\n")
	sb.WriteString("// Reloaded automatically while `fxbridge serve` runs.\n\n")

	sb.WriteString("server: {\n")
	fmt.Fprintf(&sb, "\tport:                 %d\n", cfg.Server.Port)
	fmt.Fprintf(&sb, "\tauto_restart:         %v\n", cfg.Server.AutoRestart)
	fmt.Fprintf(&sb, "\trestart_delay:        %d\n", cfg.Server.RestartDelay)
	fmt.Fprintf(&sb, "\tmax_restart_attempts: %d\n", cfg.Server.MaxRestartAttempts)
	fmt.Fprintf(&sb, "\tautostart:            %v\n", cfg.Server.Autostart)
	sb.WriteString("}\n")

	sb.WriteString("\ntechniques: [\n")
	for _, t := range cfg.Techniques {
		if t.Enabled {
			fmt.Fprintf(&sb, "\t{name: %q, enabled: true},\n", t.Name)
		} else {
			fmt.Fprintf(&sb, "\t{name: %q},\n", t.Name)
		}
	}
	sb.WriteString("]\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nfeed: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Feed.Enabled)
	fmt.Fprintf(&sb, "\taddress: %q\n", cfg.Feed.Address)
	sb.WriteString("}\n")

	sb.WriteString("\nconsole: {\n")
	fmt.Fprintf(&sb, "\tenabled:  %v\n", cfg.Console.Enabled)
	fmt.Fprintf(&sb, "\thost:     %q\n", cfg.Console.Host)
	fmt.Fprintf(&sb, "\tport:     %d\n", cfg.Console.Port)
	fmt.Fprintf(&sb, "\tpassword: %q\n", cfg.Console.Password)
	if cfg.Console.HostKeyPath != "" {
		fmt.Fprintf(&sb, "\thost_key_path: %q\n", cfg.Console.HostKeyPath)
	}
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders cfg as TOML for `fxbridge config dump --format toml`.
func GenerateTOML(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return data, nil
}

// Redacted returns a copy safe to print: the console password is masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Techniques = append([]TechniqueConfig(nil), c.Techniques...)
	if cp.Console.Password != "" {
		cp.Console.Password = "********"
	}
	return &cp
}
