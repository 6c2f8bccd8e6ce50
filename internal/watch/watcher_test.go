// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/internal/testutil"
)

type recordingApplier struct {
	mu       sync.Mutex
	settings []cmdserver.Settings
	err      error
}

func (r *recordingApplier) Apply(s cmdserver.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.settings = append(r.settings, s)
	return nil
}

func (r *recordingApplier) last() (cmdserver.Settings, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.settings) == 0 {
		return cmdserver.Settings{}, 0
	}
	return r.settings[len(r.settings)-1], len(r.settings)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// startWatcher runs w until the test ends.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	})
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("New() error = %v, want ErrNoPath", err)
	}
}

func TestNewMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent", "config.cue")
	if _, err := New(Config{Path: path}); err == nil {
		t.Fatal("New() succeeded for a missing directory")
	}
}

func TestWatcherCoalescesWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", "server: port: 7777\n")

	var calls atomic.Int32
	w, err := New(Config{
		Path:     path,
		Debounce: 100 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	for _, port := range []string{"7001", "7002", "7003"} {
		if err := os.WriteFile(path, []byte("server: port: "+port+"\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	testutil.WaitFor(t, "reload callback", func() bool { return calls.Load() >= 1 })
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", "")

	var calls atomic.Int32
	w, err := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	testutil.MustWriteFile(t, dir, "config.cue.swp", "noise")
	testutil.MustWriteFile(t, dir, "other.cue", "noise")
	time.Sleep(300 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times for sibling files, want 0", got)
	}
}

func TestWatcherSurvivesCallbackError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", "")

	var calls atomic.Int32
	w, err := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			return errors.New("bad config")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	testutil.MustWriteFile(t, dir, "config.cue", "a")
	testutil.WaitFor(t, "first callback", func() bool { return calls.Load() == 1 })

	testutil.MustWriteFile(t, dir, "config.cue", "b")
	testutil.WaitFor(t, "second callback", func() bool { return calls.Load() == 2 })
}

func TestWatcherReplaceByRename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", "")

	var calls atomic.Int32
	w, err := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	tmp := testutil.MustWriteFile(t, dir, ".config.cue.tmp", "server: port: 9000\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	testutil.WaitFor(t, "callback after rename", func() bool { return calls.Load() >= 1 })
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	path := testutil.MustWriteFile(t, t.TempDir(), "config.cue", "")
	w, err := New(Config{Path: path, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)
	testutil.WaitFor(t, "first Run to start", w.started.Load)

	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestReloaderAppliesServerSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", `
server: {
	port:                 8100
	auto_restart:         false
	restart_delay:        3
	max_restart_attempts: 4
}
log: level: "debug"
`)

	applier := &recordingApplier{}
	logger := quietLogger()
	reload := Reloader(config.NewProvider(), config.LoadOptions{ConfigFilePath: path}, applier, logger)

	if err := reload(context.Background()); err != nil {
		t.Fatalf("reload error: %v", err)
	}

	got, n := applier.last()
	if n != 1 {
		t.Fatalf("Apply called %d times, want 1", n)
	}
	want := cmdserver.Settings{Port: 8100, RestartDelay: 3, MaxRestartAttempts: 4, AutoRestart: false}
	if got != want {
		t.Errorf("applied %+v, want %+v", got, want)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("logger level = %v, want debug", logger.GetLevel())
	}
}

func TestReloaderPropagatesErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := testutil.MustWriteFile(t, dir, "good.cue", "server: port: 8200\n")
	bad := testutil.MustWriteFile(t, dir, "bad.cue", "server: port: 0\n")

	tests := []struct {
		name    string
		path    string
		applier *recordingApplier
	}{
		{"invalid file", bad, &recordingApplier{}},
		{"apply rejected", good, &recordingApplier{err: errors.New("rejected")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reload := Reloader(config.NewProvider(), config.LoadOptions{ConfigFilePath: tt.path}, tt.applier, nil)
			if err := reload(context.Background()); err == nil {
				t.Fatal("reload succeeded, want error")
			}
			if _, n := tt.applier.last(); n != 0 {
				t.Errorf("Apply recorded %d settings, want 0", n)
			}
		})
	}
}

func TestWatcherDrivesReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteFile(t, dir, "config.cue", "server: port: 8300\n")

	applier := &recordingApplier{}
	w, err := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
		OnChange: Reloader(config.NewProvider(), config.LoadOptions{ConfigFilePath: path}, applier, nil),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	testutil.MustWriteFile(t, dir, "config.cue", "server: port: 8301\n")
	testutil.WaitFor(t, "port 8301 applied", func() bool {
		s, _ := applier.last()
		return s.Port == 8301
	})
}
