// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/issue"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `fxbridge config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fxbridge configuration",
		Long: `Manage fxbridge configuration.

Configuration is stored in:
  - Linux: ~/.config/fxbridge/config.cue
  - macOS: ~/Library/Application Support/fxbridge/config.cue
  - Windows: %APPDATA%\fxbridge\config.cue

Every value can also be overridden with FXBRIDGE_* environment variables,
for example FXBRIDGE_SERVER_PORT=7800.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath(rootFlags.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a server or log setting in the configuration file",
		Long: `Set a server or log setting in the configuration file.

Supported keys: server.port, server.restart_delay, server.max_restart_attempts,
server.auto_restart, server.autostart, log.level.

A running 'fxbridge serve' picks the change up without a restart.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, rootFlags, args[0], args[1])
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}

			switch format {
			case formatCUE:
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg.Redacted()))
			case formatTOML:
				data, err := config.GenerateTOML(cfg.Redacted())
				if err != nil {
					return err
				}
				_, _ = app.stdout.Write(data)
			default:
				return fmt.Errorf("unknown format %q (valid: %s, %s)", format, formatCUE, formatTOML)
			}
			return nil
		},
	}
	dumpCmd.Flags().StringVarP(&format, "format", "f", formatCUE, "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	cfg, path, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}
	cfg = cfg.Redacted()

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)
	if path != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("server"))
	fmt.Fprintf(out, "  port: %s\n", valueStyle.Render(cfg.Server.Port.String()))
	fmt.Fprintf(out, "  auto_restart: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Server.AutoRestart)))
	fmt.Fprintf(out, "  restart_delay: %s\n", valueStyle.Render(cfg.Server.RestartDelay.String()))
	fmt.Fprintf(out, "  max_restart_attempts: %s\n", valueStyle.Render(strconv.Itoa(int(cfg.Server.MaxRestartAttempts))))
	fmt.Fprintf(out, "  autostart: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Server.Autostart)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("techniques"))
	if len(cfg.Techniques) == 0 {
		fmt.Fprintf(out, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, t := range cfg.Techniques {
		fmt.Fprintf(out, "  - %s %s\n", t.Name, valueStyle.Render(effects.OnOff(t.Enabled)))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("log"))
	fmt.Fprintf(out, "  level: %s\n", valueStyle.Render(cfg.Log.Level.String()))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("feed"))
	fmt.Fprintf(out, "  enabled: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Feed.Enabled)))
	fmt.Fprintf(out, "  address: %s\n", valueStyle.Render(cfg.Feed.Address))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("console"))
	fmt.Fprintf(out, "  enabled: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Console.Enabled)))
	fmt.Fprintf(out, "  host: %s\n", valueStyle.Render(cfg.Console.Host))
	fmt.Fprintf(out, "  port: %s\n", valueStyle.Render(cfg.Console.Port.String()))
	fmt.Fprintf(out, "  password: %s\n", valueStyle.Render(cfg.Console.Password))

	return nil
}

func initConfig(app *App, rootFlags *rootFlagValues) error {
	path, err := config.ResolvePath(rootFlags.loadOptions())
	if err != nil {
		return err
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func setConfigValue(ctx context.Context, app *App, rootFlags *rootFlagValues, key, value string) error {
	cfg, _, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}

	if err := applySetting(cfg, key, value); err != nil {
		return configExit(issue.NewErrorContext().
			WithOperation("set " + key).
			WithIssue(issue.InvalidSettingId).
			WithSuggestion("Run 'fxbridge config set --help' for the supported keys").
			Wrap(err).
			BuildError())
	}
	if err := cfg.Validate(); err != nil {
		return configExit(err)
	}

	path, err := config.ResolvePath(rootFlags.loadOptions())
	if err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "server.port":
		port, err := types.ParseListenPort(value)
		if err != nil {
			return err
		}
		cfg.Server.Port = port
	case "server.restart_delay":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid restart delay %q: %w", value, err)
		}
		d := types.RestartDelay(n)
		if err := d.Validate(); err != nil {
			return err
		}
		cfg.Server.RestartDelay = d
	case "server.max_restart_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max restart attempts %q: %w", value, err)
		}
		m := types.MaxRestartAttempts(n)
		if err := m.Validate(); err != nil {
			return err
		}
		cfg.Server.MaxRestartAttempts = m
	case "server.auto_restart", "server.autostart":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		if key == "server.auto_restart" {
			cfg.Server.AutoRestart = b
		} else {
			cfg.Server.Autostart = b
		}
	case "log.level":
		level := config.LogLevel(value)
		if err := level.Validate(); err != nil {
			return err
		}
		cfg.Log.Level = level
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}
