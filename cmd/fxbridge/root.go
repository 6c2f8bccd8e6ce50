// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/fxbridge/fxbridge/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree over app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "fxbridge",
		Short: "Remote control for post-processing effects over TCP",
		Long: TitleStyle.Render("fxbridge") + SubtitleStyle.Render(" - Remote control for post-processing effects over TCP") + `

fxbridge hosts a small line-oriented TCP server. A client sends lines such as
"enable Bloom" or "toggle MotionBlur"; each line is acknowledged with "OK"
and applied to the configured techniques. The server restarts itself after
failures, within a configurable budget.

` + SubtitleStyle.Render("Examples:") + `
  fxbridge serve                 Start the command server
  fxbridge serve --dashboard     Start with the interactive dashboard
  fxbridge send "enable Bloom"   Send one command line to a running server
  fxbridge targets               List the configured techniques
  fxbridge config show           Show current configuration`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/fxbridge/config.cue)")

	rootCmd.AddCommand(newServeCommand(app, flags))
	rootCmd.AddCommand(newSendCommand(app, flags))
	rootCmd.AddCommand(newTargetsCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(int(types.ExitFailure))
	}

	// fang cancels the command context on these signals, which is how
	// `serve` learns it should shut down.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}
