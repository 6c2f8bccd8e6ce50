// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fxbridge/fxbridge/internal/core/clock"
	"github.com/fxbridge/fxbridge/internal/logsink"
)

const (
	// DefaultMonitorPeriod is the watchdog tick.
	DefaultMonitorPeriod = time.Second
	// DefaultHeartbeatTimeout is how stale a running listener's heartbeat may
	// get before it is torn down.
	DefaultHeartbeatTimeout = 30 * time.Second
)

// Monitor supervises listener incarnations. It restarts a listener that
// should be running but is not, and tears down one whose heartbeat stalled.
type Monitor struct {
	state     *State
	sink      logsink.Sink
	clock     clock.Clock
	listener  *slot
	newWorker WorkerFactory

	// opMu serialises watchdog actions with Controller operations.
	opMu *sync.Mutex

	period           time.Duration
	heartbeatTimeout time.Duration
}

// Run ticks until ctx is cancelled or the state no longer asks for the
// server to run.
func (m *Monitor) Run(ctx context.Context) {
	m.sink.Append(logsink.Info, "Monitor started")
	defer m.sink.Append(logsink.Info, "Monitor stopped")

	for m.state.ShouldRun() {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.period):
		}
		m.tick()
	}
}

func (m *Monitor) tick() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	// Stop may have won the lock while this tick was waiting.
	if !m.state.ShouldRun() {
		return
	}

	m.checkRestart()
	m.checkHeartbeat()
}

func (m *Monitor) checkRestart() {
	plan, attempt, limit := m.state.planRestart(m.clock.Now())
	switch plan {
	case planRestart:
		m.listener.join()
		m.state.markSpawned()
		m.listener.spawn(m.newWorker())
		m.sink.Append(logsink.Warning, fmt.Sprintf("Auto-restarting server (attempt %d/%d)", attempt, limit))
	case planCapReached:
		m.sink.Append(logsink.Error, "Max restart attempts reached. Auto-restart disabled.")
	case planNone:
	}
}

func (m *Monitor) checkHeartbeat() {
	if !m.state.heartbeatExpired(m.clock.Now(), m.heartbeatTimeout) {
		return
	}

	m.sink.Append(logsink.Warning, "Server heartbeat timeout - marking as unhealthy")
	m.state.markUnhealthy()
	m.listener.forceClose()
	// Closing the socket cannot interrupt a Capability call in progress; the
	// join waits for it, with opMu held.
	m.listener.join()
	m.state.setRunning(false)
}
