// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/command"
	"github.com/fxbridge/fxbridge/internal/core/clock"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/logsink"
	"github.com/fxbridge/fxbridge/pkg/types"
)

// DefaultRestartPause is the gap between stopping and respawning on a
// manual Restart.
const DefaultRestartPause = 500 * time.Millisecond

type (
	// Settings are the runtime-mutable parameters of the command server.
	Settings struct {
		Port               types.ListenPort
		RestartDelay       types.RestartDelay
		MaxRestartAttempts types.MaxRestartAttempts
		AutoRestart        bool
	}

	// Controller is the control surface of the command server. All methods
	// are safe for concurrent use.
	Controller struct {
		// opMu serialises Start, Stop, Restart and the monitor's actions.
		opMu sync.Mutex

		state      *State
		ring       *logsink.Ring
		dispatcher *command.Dispatcher
		clock      clock.Clock
		logger     *log.Logger

		newWorker    WorkerFactory
		listenerCfg  ListenerConfig
		listener     slot
		restartPause time.Duration

		monitorPeriod    time.Duration
		heartbeatTimeout time.Duration
		monitorCancel    context.CancelFunc
		monitorDone      chan struct{}

		logCapacity int
		capability  effects.Capability
	}

	// Option configures a Controller.
	Option func(*Controller)
)

// DefaultSettings returns port 7777, auto-restart on, 5s delay, 10 attempts.
func DefaultSettings() Settings {
	return Settings{
		Port:               DefaultPort,
		RestartDelay:       DefaultRestartDelay,
		MaxRestartAttempts: DefaultMaxRestartAttempts,
		AutoRestart:        true,
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	return errors.Join(s.Port.Validate(), s.RestartDelay.Validate(), s.MaxRestartAttempts.Validate())
}

// WithClock sets the time source for the state, log and monitor.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the structured logger the sink mirrors to.
func WithLogger(l *log.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithCapability attaches the effect capability at construction.
func WithCapability(c effects.Capability) Option {
	return func(ctl *Controller) { ctl.capability = c }
}

// WithLogCapacity bounds the in-memory log.
func WithLogCapacity(n int) Option {
	return func(ctl *Controller) { ctl.logCapacity = n }
}

// WithListenerConfig tunes the listener polling loop.
func WithListenerConfig(cfg ListenerConfig) Option {
	return func(ctl *Controller) { ctl.listenerCfg = cfg }
}

// WithWorkerFactory replaces the TCP listener with another Worker.
func WithWorkerFactory(f WorkerFactory) Option {
	return func(ctl *Controller) { ctl.newWorker = f }
}

// WithRestartPause overrides the manual restart pause.
func WithRestartPause(d time.Duration) Option {
	return func(ctl *Controller) { ctl.restartPause = d }
}

// WithMonitorTiming overrides the watchdog tick and heartbeat timeout.
func WithMonitorTiming(period, heartbeatTimeout time.Duration) Option {
	return func(ctl *Controller) {
		ctl.monitorPeriod = period
		ctl.heartbeatTimeout = heartbeatTimeout
	}
}

// InitializedMessage is the first entry of every Controller's log.
const InitializedMessage = "=== fxbridge initialized ==="

// New builds a stopped Controller with the given settings.
func New(settings Settings, opts ...Option) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		clock:            clock.Real{},
		restartPause:     DefaultRestartPause,
		monitorPeriod:    DefaultMonitorPeriod,
		heartbeatTimeout: DefaultHeartbeatTimeout,
		logCapacity:      logsink.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("cmdserver")
	}

	c.state = NewState(c.clock)
	c.state.setPort(settings.Port)
	c.state.setAutoRestart(settings.AutoRestart)
	c.state.setRestartDelay(settings.RestartDelay)
	c.state.setMaxRestartAttempts(settings.MaxRestartAttempts)

	c.ring = logsink.NewRing(c.logCapacity, logsink.WithClock(c.clock), logsink.WithLogger(c.logger))
	c.ring.Append(logsink.Info, InitializedMessage)
	c.dispatcher = command.NewDispatcher(nil, c.ring, c.state)
	if c.capability != nil {
		c.dispatcher.SetCapability(c.capability)
	}

	if c.newWorker == nil {
		c.newWorker = func() Worker {
			return NewListener(c.state, c.dispatcher, c.ring, c.logger, c.listenerCfg)
		}
	}
	return c, nil
}

// Start binds port and starts supervising it. An invalid port is rejected
// before any state changes.
func (c *Controller) Start(port types.ListenPort) error {
	if err := port.Validate(); err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.state.Running() {
		return ErrAlreadyRunning
	}

	// A previous incarnation may still be on its exit path.
	c.listener.join()
	c.state.beginRun(port)
	c.listener.spawn(c.newWorker())

	if c.monitorDone == nil {
		c.startMonitor()
	}
	return nil
}

// StartString parses operator text input and starts on that port.
func (c *Controller) StartString(port string) error {
	p, err := types.ParseListenPort(port)
	if err != nil {
		return err
	}
	return c.Start(p)
}

// Stop tears down the listener and the monitor. Calling it again is a no-op.
func (c *Controller) Stop() {
	c.opMu.Lock()
	c.state.requestStop()
	c.listener.forceClose()
	c.listener.join()
	cancel, done := c.monitorCancel, c.monitorDone
	c.monitorCancel, c.monitorDone = nil, nil
	c.opMu.Unlock()

	// The monitor takes opMu on each tick, so it is joined without holding it.
	if cancel != nil {
		cancel()
		<-done
	}
}

// Restart stops the current listener and spawns a fresh one after a short
// pause. The restart counter is reset; cooldown and cap do not apply.
func (c *Controller) Restart() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.state.ShouldRun() {
		return ErrNotStarted
	}

	c.ring.Append(logsink.Info, "Manual server restart requested")
	c.state.setRunning(false)
	c.listener.forceClose()
	c.listener.join()
	c.state.resetRestartCount()

	if c.restartPause > 0 {
		<-c.clock.After(c.restartPause)
	}

	c.state.markSpawned()
	c.listener.spawn(c.newWorker())
	return nil
}

// Close stops the server. It implements io.Closer.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

// SetPort changes the port used by the next bind.
func (c *Controller) SetPort(port types.ListenPort) error {
	if err := port.Validate(); err != nil {
		return err
	}
	c.state.setPort(port)
	return nil
}

// SetAutoRestart toggles the restart watchdog. Re-enabling resets the
// restart counter.
func (c *Controller) SetAutoRestart(enabled bool) {
	if prev := c.state.setAutoRestart(enabled); prev == enabled {
		return
	}
	if enabled {
		c.ring.Append(logsink.Success, "Auto-restart enabled")
	} else {
		c.ring.Append(logsink.Warning, "Auto-restart disabled")
	}
}

// SetRestartDelay sets the cooldown between automatic restarts.
func (c *Controller) SetRestartDelay(d types.RestartDelay) error {
	if err := d.Validate(); err != nil {
		return err
	}
	c.state.setRestartDelay(d)
	return nil
}

// SetMaxRestartAttempts sets the automatic restart cap.
func (c *Controller) SetMaxRestartAttempts(m types.MaxRestartAttempts) error {
	if err := m.Validate(); err != nil {
		return err
	}
	c.state.setMaxRestartAttempts(m)
	return nil
}

// ResetRestartCounter zeroes the automatic restart counter.
func (c *Controller) ResetRestartCounter() {
	c.state.resetRestartCount()
	c.ring.Append(logsink.Success, "Restart counter reset")
}

// Apply validates and applies a full settings set, as on config reload.
// Nothing is applied when any field is invalid. A port change takes effect
// on the next bind.
func (c *Controller) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.state.setPort(s.Port)
	c.state.setRestartDelay(s.RestartDelay)
	c.state.setMaxRestartAttempts(s.MaxRestartAttempts)
	c.SetAutoRestart(s.AutoRestart)
	return nil
}

// SetCapability attaches or replaces the effect capability.
func (c *Controller) SetCapability(capability effects.Capability) {
	c.dispatcher.SetCapability(capability)
}

// Status returns a snapshot of the shared state.
func (c *Controller) Status() Status { return c.state.Snapshot() }

// Logs returns the retained log entries, oldest first.
func (c *Controller) Logs() []logsink.Entry { return c.ring.Snapshot() }

// SubscribeLogs streams entries appended from now on.
func (c *Controller) SubscribeLogs(buffer int) (<-chan logsink.Entry, func()) {
	return c.ring.Subscribe(buffer)
}

// Targets returns the effects and their current state.
func (c *Controller) Targets() []effects.Target {
	return effects.Snapshot(c.dispatcher.Capability())
}

// Dispatch applies one protocol line as if a client had sent it.
func (c *Controller) Dispatch(line string) { c.dispatcher.Dispatch(line) }

func (c *Controller) startMonitor() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.monitorCancel, c.monitorDone = cancel, done

	m := c.monitor()
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
}

func (c *Controller) monitor() *Monitor {
	return &Monitor{
		state:            c.state,
		sink:             c.ring,
		clock:            c.clock,
		listener:         &c.listener,
		newWorker:        c.newWorker,
		opMu:             &c.opMu,
		period:           c.monitorPeriod,
		heartbeatTimeout: c.heartbeatTimeout,
	}
}
