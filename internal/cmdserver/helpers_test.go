// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/logsink"
	"github.com/fxbridge/fxbridge/internal/testutil"
	"github.com/fxbridge/fxbridge/pkg/types"
)

type (
	// blockingWorker stands in for a healthy listener: Run blocks until
	// ForceClose.
	blockingWorker struct {
		release    chan struct{}
		once       sync.Once
		closeCalls *atomic.Int32
	}

	// workerCounter builds workers and counts spawns and force-closes.
	workerCounter struct {
		spawned    atomic.Int32
		closeCalls atomic.Int32
		// onRun, when set, replaces the blocking behaviour.
		onRun func()
	}

	funcWorker struct {
		run        func()
		closeCalls *atomic.Int32
	}
)

func (w *blockingWorker) Run() { <-w.release }

func (w *blockingWorker) ForceClose() {
	w.closeCalls.Add(1)
	w.once.Do(func() { close(w.release) })
}

func (w *funcWorker) Run()        { w.run() }
func (w *funcWorker) ForceClose() { w.closeCalls.Add(1) }

func (c *workerCounter) factory() Worker {
	c.spawned.Add(1)
	if c.onRun != nil {
		return &funcWorker{run: c.onRun, closeCalls: &c.closeCalls}
	}
	return &blockingWorker{release: make(chan struct{}), closeCalls: &c.closeCalls}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func freePort(t *testing.T) types.ListenPort {
	t.Helper()
	return types.ListenPort(testutil.FreePort(t))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	testutil.WaitFor(t, what, cond)
}

func hasEntry(entries []logsink.Entry, sev logsink.Severity, msg string) bool {
	for _, e := range entries {
		if e.Severity == sev && e.Message == msg {
			return true
		}
	}
	return false
}

func hasPrefix(entries []logsink.Entry, sev logsink.Severity, prefix string) bool {
	for _, e := range entries {
		if e.Severity == sev && strings.HasPrefix(e.Message, prefix) {
			return true
		}
	}
	return false
}

func countEntries(entries []logsink.Entry, msg string) int {
	n := 0
	for _, e := range entries {
		if e.Message == msg {
			n++
		}
	}
	return n
}
