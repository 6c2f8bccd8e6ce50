// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/fxbridge/fxbridge/internal/issue"
	"github.com/fxbridge/fxbridge/pkg/types"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.3.0"
		Commit = "9f1c2ab"
		BuildDate = "2026-03-01T08:30:00Z"

		got := getVersionString()
		want := "v0.3.0 (commit: 9f1c2ab, built: 2026-03-01T08:30:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommandTree(t *testing.T) {
	t.Parallel()

	app, err := NewApp(Dependencies{})
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	root := NewRootCommand(app)

	for _, path := range [][]string{
		{"serve"},
		{"send"},
		{"targets"},
		{"config", "show"},
		{"config", "init"},
		{"config", "path"},
		{"config", "set"},
		{"config", "dump"},
	} {
		found, _, err := root.Find(path)
		if err != nil || found == root {
			t.Errorf("command %q not registered: %v", strings.Join(path, " "), err)
		}
	}

	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	withCause := &ExitError{Code: types.ExitUnreachable, Err: cause}
	if withCause.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", withCause.Error(), "boom")
	}
	if !errors.Is(withCause, cause) {
		t.Error("errors.Is(ExitError, cause) = false")
	}

	tests := []struct {
		code types.ExitCode
		want string
	}{
		{types.ExitConfig, "exit status 2: invalid configuration"},
		{types.ExitUnreachable, "exit status 3: command server unreachable"},
		{types.ExitFailure, "exit status 1"},
	}
	for _, tt := range tests {
		if got := (&ExitError{Code: tt.code}).Error(); got != tt.want {
			t.Errorf("Error() for code %d = %q, want %q", tt.code, got, tt.want)
		}
	}

	if got := configExit(cause); got.Code != types.ExitConfig || !errors.Is(got, cause) {
		t.Errorf("configExit(cause) = %+v", got)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("plain error = %q", got)
	}

	actionable := issue.NewErrorContext().
		WithOperation("send to command server").
		WithResource("127.0.0.1:7777").
		WithSuggestion("Check that 'fxbridge serve' is running").
		Wrap(plain).
		BuildError()
	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "send to command server") || !strings.Contains(got, "fxbridge serve") {
		t.Errorf("actionable error = %q, want operation and suggestion", got)
	}
}
