// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/internal/console"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/feed"
	"github.com/fxbridge/fxbridge/internal/issue"
	"github.com/fxbridge/fxbridge/internal/tui"
	"github.com/fxbridge/fxbridge/internal/watch"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const shutdownTimeout = 5 * time.Second

type (
	serveFlagValues struct {
		port      int
		dashboard bool
		noWatch   bool
	}

	// stopper is a side service that serve tears down on exit.
	stopper interface {
		Stop(ctx context.Context) error
	}
)

func newServeCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &serveFlagValues{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the command server until interrupted",
		Long: `Run the command server until interrupted.

The server listens on the configured port (or --port) and applies every
received line to the configured techniques. The HTTP status feed and the SSH
console start as well when they are enabled in the configuration. Edits to
the config file are applied to the running server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVarP(&flags.dashboard, "dashboard", "d", false, "show the interactive dashboard")
	cmd.Flags().BoolVar(&flags.noWatch, "no-watch", false, "do not reload the config file on change")

	return cmd
}

func runServe(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *serveFlagValues) error {
	cfg, cfgPath, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}

	if flags.port != 0 {
		port := types.ListenPort(flags.port)
		if err := port.Validate(); err != nil {
			return configExit(issue.NewErrorContext().
				WithOperation("parse --port").
				WithIssue(issue.InvalidSettingId).
				WithSuggestion("Use a port between 1 and 65535").
				Wrap(err).
				BuildError())
		}
		cfg.Server.Port = port
	}

	logger := app.newLogger(rootFlags, cfg.Log.Level)
	if flags.dashboard {
		// The dashboard owns the terminal; its log pane shows server activity.
		logger.SetOutput(io.Discard)
	}

	registry, err := effects.NewRegistry(cfg.Targets()...)
	if err != nil {
		return configExit(err)
	}

	serverLogger := logger.WithPrefix("cmdserver")
	ctl, err := cmdserver.New(cfg.ServerSettings(),
		cmdserver.WithLogger(serverLogger),
		cmdserver.WithCapability(registry),
	)
	if err != nil {
		return configExit(err)
	}
	defer func() {
		if closeErr := ctl.Close(); closeErr != nil {
			logger.Warn("closing command server", "error", closeErr)
		}
	}()

	if cfg.Server.Autostart {
		if err := ctl.Start(cfg.Server.Port); err != nil {
			return err
		}
	}

	services, err := startServices(ctx, app, cfg, ctl, logger)
	defer stopServices(services, logger)
	if err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := startWatcher(watchCtx, app, rootFlags, cfgPath, flags.noWatch, ctl, serverLogger)
	defer func() {
		stopWatch()
		<-watchDone
	}()

	if flags.dashboard {
		return tui.Run(ctx, ctl)
	}

	fmt.Fprintf(app.stdout, "%s %s\n",
		TitleStyle.Render("fxbridge"),
		SubtitleStyle.Render(fmt.Sprintf("serving on port %d (Ctrl+C to stop)", cfg.Server.Port)))
	<-ctx.Done()
	return nil
}

// startServices starts the optional feed and console. The returned slice
// holds every service that started, even when a later one failed.
func startServices(ctx context.Context, app *App, cfg *config.Config, ctl *cmdserver.Controller, logger *log.Logger) ([]stopper, error) {
	var started []stopper

	if cfg.Feed.Enabled {
		srv := feed.New(ctl, feed.Config{
			Address: cfg.Feed.Address,
			Logger:  logger.WithPrefix("feed"),
		})
		if err := srv.Start(ctx); err != nil {
			err = issue.NewErrorContext().
				WithOperation("start status feed").
				WithResource(cfg.Feed.Address).
				WithIssue(issue.FeedStartFailedId).
				WithSuggestion("Pick another feed.address or set feed.enabled to false").
				Wrap(err).
				BuildError()
			app.renderIssue(err, issue.FeedStartFailedId)
			return started, err
		}
		started = append(started, srv)
		logger.Info("status feed listening", "url", srv.URL())
	}

	if cfg.Console.Enabled {
		srv := console.New(ctl, console.Config{
			Host:        console.HostAddress(cfg.Console.Host),
			Port:        int(cfg.Console.Port),
			Password:    cfg.Console.Password,
			HostKeyPath: cfg.Console.HostKeyPath,
			Logger:      logger.WithPrefix("console"),
		})
		if err := srv.Start(ctx); err != nil {
			err = issue.NewErrorContext().
				WithOperation("start SSH console").
				WithResource(fmt.Sprintf("%s:%d", cfg.Console.Host, cfg.Console.Port)).
				WithIssue(issue.ConsoleStartFailedId).
				WithSuggestion("Set console.password and check console.port is free").
				Wrap(err).
				BuildError()
			app.renderIssue(err, issue.ConsoleStartFailedId)
			return started, err
		}
		started = append(started, srv)
		logger.Info("SSH console listening", "address", srv.Address())
	}

	return started, nil
}

func stopServices(services []stopper, logger *log.Logger) {
	for i := len(services) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := services[i].Stop(ctx); err != nil {
			logger.Warn("stopping service", "error", err)
		}
		cancel()
	}
}

// startWatcher reloads the config file on change until ctx ends. The
// returned channel closes once the watcher has exited. Without a config
// file there is nothing to watch.
func startWatcher(ctx context.Context, app *App, rootFlags *rootFlagValues, cfgPath string, disabled bool, ctl *cmdserver.Controller, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	if disabled || cfgPath == "" {
		close(done)
		return done
	}

	opts := rootFlags.loadOptions()
	opts.ConfigFilePath = cfgPath
	w, err := watch.New(watch.Config{
		Path:     cfgPath,
		OnChange: watch.Reloader(app.Config, opts, ctl, logger),
		Logger:   logger.WithPrefix("watch"),
	})
	if err != nil {
		logger.Warn("config reload disabled", "path", cfgPath, "error", formatErrorForDisplay(err, rootFlags.verbose))
		close(done)
		return done
	}

	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()
	return done
}
