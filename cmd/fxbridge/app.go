// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads configuration and writes output through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

func (f *rootFlagValues) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: f.configPath}
}

// loadConfig loads the configuration selected by the root flags. Failures
// print the linked catalog entry and exit with ExitConfig.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, string, error) {
	cfg, path, err := a.Config.Load(ctx, flags.loadOptions())
	if err != nil {
		a.renderIssue(err, issue.ConfigLoadFailedId)
		return nil, "", configExit(err)
	}
	return cfg, path, nil
}

// renderIssue prints the catalog entry linked to err, or fallback when err
// carries none.
func (a *App) renderIssue(err error, fallback issue.Id) {
	entry := issue.IssueOf(err)
	if entry == nil {
		entry = issue.Get(fallback)
	}
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// newLogger builds the process logger. --verbose wins over the configured level.
func (a *App) newLogger(flags *rootFlagValues, level config.LogLevel) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	if lvl, err := log.ParseLevel(level.String()); err == nil {
		logger.SetLevel(lvl)
	}
	if flags.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
