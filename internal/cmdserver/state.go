// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"sync"
	"time"

	"github.com/fxbridge/fxbridge/internal/core/clock"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	// DefaultPort is the command port used when none is configured.
	DefaultPort types.ListenPort = 7777
	// DefaultRestartDelay is the default cooldown between automatic restarts.
	DefaultRestartDelay types.RestartDelay = 5
	// DefaultMaxRestartAttempts is the default automatic restart cap.
	DefaultMaxRestartAttempts types.MaxRestartAttempts = 10

	noClient = "None"
)

type (
	// State is the shared, mutex-guarded record every worker reads and
	// writes. One State lives for the whole Controller and is handed to each
	// listener incarnation by pointer.
	State struct {
		mu    sync.RWMutex
		clock clock.Clock

		running   bool
		shouldRun bool
		healthy   bool
		port      types.ListenPort

		lastHeartbeat       time.Time
		lastRestartAttempt  time.Time
		lastSuccessfulStart time.Time

		restartCount       int
		autoRestart        bool
		restartDelay       types.RestartDelay
		maxRestartAttempts types.MaxRestartAttempts

		clientConnected  bool
		clientAddress    string
		commandsReceived uint64
		lastCommandTime  time.Time
	}

	// Status is an immutable copy of State for display.
	Status struct {
		LastHeartbeat       time.Time                `json:"last_heartbeat"`
		LastRestartAttempt  time.Time                `json:"last_restart_attempt"`
		LastSuccessfulStart time.Time                `json:"last_successful_start"`
		LastCommandTime     time.Time                `json:"last_command_time"`
		ClientAddress       string                   `json:"client_address"`
		CommandsReceived    uint64                   `json:"commands_received"`
		RestartCount        int                      `json:"restart_count"`
		Port                types.ListenPort         `json:"port"`
		RestartDelay        types.RestartDelay       `json:"restart_delay_seconds"`
		MaxRestartAttempts  types.MaxRestartAttempts `json:"max_restart_attempts"`
		Running             bool                     `json:"running"`
		ShouldRun           bool                     `json:"should_run"`
		Healthy             bool                     `json:"healthy"`
		AutoRestart         bool                     `json:"auto_restart"`
		ClientConnected     bool                     `json:"client_connected"`
	}

	// restartPlan is the monitor's decision for one watchdog pass.
	restartPlan int
)

const (
	planNone restartPlan = iota
	planRestart
	planCapReached
)

// NewState returns a State with default settings: port 7777, auto-restart on,
// 5s delay, 10 attempts.
func NewState(c clock.Clock) *State {
	if c == nil {
		c = clock.Real{}
	}
	return &State{
		clock:              c,
		port:               DefaultPort,
		autoRestart:        true,
		restartDelay:       DefaultRestartDelay,
		maxRestartAttempts: DefaultMaxRestartAttempts,
		clientAddress:      noClient,
	}
}

// Snapshot copies every field under the read lock.
func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		LastHeartbeat:       s.lastHeartbeat,
		LastRestartAttempt:  s.lastRestartAttempt,
		LastSuccessfulStart: s.lastSuccessfulStart,
		LastCommandTime:     s.lastCommandTime,
		ClientAddress:       s.clientAddress,
		CommandsReceived:    s.commandsReceived,
		RestartCount:        s.restartCount,
		Port:                s.port,
		RestartDelay:        s.restartDelay,
		MaxRestartAttempts:  s.maxRestartAttempts,
		Running:             s.running,
		ShouldRun:           s.shouldRun,
		Healthy:             s.healthy,
		AutoRestart:         s.autoRestart,
		ClientConnected:     s.clientConnected,
	}
}

// RecordCommand counts one received line. It implements command.Recorder.
func (s *State) RecordCommand() {
	now := s.clock.Now()
	s.mu.Lock()
	s.commandsReceived++
	s.lastCommandTime = now
	s.mu.Unlock()
}

// Port returns the configured port.
func (s *State) Port() types.ListenPort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

// Running reports whether a listener incarnation is supposed to be live.
func (s *State) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ShouldRun reports whether the operator wants the server up.
func (s *State) ShouldRun() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shouldRun
}

// AutoRestart reports whether the restart watchdog is enabled.
func (s *State) AutoRestart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoRestart
}

func (s *State) active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && s.shouldRun
}

func (s *State) beat() {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastHeartbeat = now
	s.mu.Unlock()
}

// markListening records a successful bind.
func (s *State) markListening() {
	now := s.clock.Now()
	s.mu.Lock()
	s.healthy = true
	s.lastHeartbeat = now
	s.lastSuccessfulStart = now
	s.restartCount = 0
	s.mu.Unlock()
}

func (s *State) markUnhealthy() {
	s.mu.Lock()
	s.healthy = false
	s.mu.Unlock()
}

// markStopped is the exit path of every listener incarnation.
func (s *State) markStopped() {
	s.mu.Lock()
	s.running = false
	s.healthy = false
	s.clientConnected = false
	s.clientAddress = noClient
	s.mu.Unlock()
}

func (s *State) setClient(addr string) {
	s.mu.Lock()
	s.clientConnected = true
	s.clientAddress = addr
	s.mu.Unlock()
}

func (s *State) clearClient() {
	s.mu.Lock()
	s.clientConnected = false
	s.clientAddress = noClient
	s.mu.Unlock()
}

// beginRun marks a manual start on port.
func (s *State) beginRun(port types.ListenPort) {
	now := s.clock.Now()
	s.mu.Lock()
	s.port = port
	s.shouldRun = true
	s.running = true
	s.restartCount = 0
	s.lastHeartbeat = now
	s.mu.Unlock()
}

// markSpawned flags a fresh incarnation as running. The heartbeat is stamped
// so the watchdog gives it a full timeout to bind.
func (s *State) markSpawned() {
	now := s.clock.Now()
	s.mu.Lock()
	s.running = true
	s.lastHeartbeat = now
	s.mu.Unlock()
}

func (s *State) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *State) requestStop() {
	s.mu.Lock()
	s.shouldRun = false
	s.running = false
	s.mu.Unlock()
}

func (s *State) setPort(p types.ListenPort) {
	s.mu.Lock()
	s.port = p
	s.mu.Unlock()
}

// setAutoRestart returns the previous value. Re-enabling resets the counter.
func (s *State) setAutoRestart(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.autoRestart
	s.autoRestart = enabled
	if enabled && !prev {
		s.restartCount = 0
	}
	return prev
}

func (s *State) setRestartDelay(d types.RestartDelay) {
	s.mu.Lock()
	s.restartDelay = d
	s.mu.Unlock()
}

func (s *State) setMaxRestartAttempts(m types.MaxRestartAttempts) {
	s.mu.Lock()
	s.maxRestartAttempts = m
	s.mu.Unlock()
}

func (s *State) resetRestartCount() {
	s.mu.Lock()
	s.restartCount = 0
	s.mu.Unlock()
}

// planRestart evaluates the restart watchdog at now. On planRestart the
// attempt is already counted and stamped; attempt and limit describe it.
func (s *State) planRestart(now time.Time) (plan restartPlan, attempt int, limit types.MaxRestartAttempts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = s.maxRestartAttempts
	if !s.autoRestart || !s.shouldRun || s.running {
		return planNone, s.restartCount, limit
	}
	if now.Sub(s.lastRestartAttempt) < s.restartDelay.Duration() {
		return planNone, s.restartCount, limit
	}
	if s.restartCount >= int(s.maxRestartAttempts) {
		s.autoRestart = false
		return planCapReached, s.restartCount, limit
	}

	s.restartCount++
	s.lastRestartAttempt = now
	return planRestart, s.restartCount, limit
}

// heartbeatExpired reports whether a running incarnation has not refreshed
// its heartbeat for longer than timeout.
func (s *State) heartbeatExpired(now time.Time, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && now.Sub(s.lastHeartbeat) > timeout
}
