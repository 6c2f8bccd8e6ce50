// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Base carries the lifecycle of one server incarnation: an atomic state,
// a cancellable context, tracked goroutines and a done signal.
// Concrete servers embed it.
//
// A Base is single-use: once it reaches a terminal state, create a new one.
type Base struct {
	id string

	state atomic.Int32

	mu      sync.Mutex
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	readyCh  chan struct{}
	doneCh   chan struct{}
	doneOnce sync.Once
	errCh    chan error
}

// NewBase creates a Base in StateCreated.
// Each Base gets a random incarnation ID unless WithID overrides it.
func NewBase(opts ...Option) *Base {
	b := &Base{
		id:      uuid.NewString(),
		readyCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
		errCh:   make(chan error, 1),
	}
	b.state.Store(int32(StateCreated))

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// ID identifies this incarnation in logs.
func (b *Base) ID() string { return b.id }

// State returns the current lifecycle state (lock-free).
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning reports whether the state is StateRunning.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// Err returns the channel receiving asynchronous failures.
func (b *Base) Err() <-chan error {
	return b.errCh
}

// LastError returns the error that caused StateFailed, or nil.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Context returns the incarnation context, or nil before TransitionToStarting.
// It is cancelled on stop or failure.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// TransitionToStarting moves Created -> Starting. It fails if the state is not
// Created, and fails the incarnation outright if ctx is already cancelled.
func (b *Base) TransitionToStarting(ctx context.Context) error {
	select {
	case <-ctx.Done():
		err := fmt.Errorf("context cancelled before start: %w", ctx.Err())
		b.TransitionToFailed(err)
		return err
	default:
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", b.State())
	}

	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	return nil
}

// TransitionToRunning moves Starting -> Running and releases WaitForReady callers.
func (b *Base) TransitionToRunning() {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(b.readyCh)
	}
}

// TransitionToFailed records err, moves to the terminal Failed state and
// cancels the context. The error is offered to Err() without blocking.
func (b *Base) TransitionToFailed(err error) {
	b.mu.Lock()
	b.lastErr = err
	cancel := b.cancel
	b.mu.Unlock()

	b.state.Store(int32(StateFailed))
	if cancel != nil {
		cancel()
	}

	select {
	case b.errCh <- err:
	default:
	}
	b.finish()
}

// TransitionToStopping moves Starting/Running -> Stopping and cancels the
// context. It returns false when there is nothing to stop; a Created base is
// marked Stopped directly.
func (b *Base) TransitionToStopping() bool {
	for {
		current := b.State()
		switch current {
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				b.finish()
				return false
			}
		case StateStarting, StateRunning:
			if !b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				continue
			}
			b.mu.Lock()
			cancel := b.cancel
			b.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			return true
		default:
			return false
		}
	}
}

// TransitionToStopped marks the incarnation stopped once its goroutines have
// exited. A Failed incarnation keeps its Failed state.
func (b *Base) TransitionToStopped() {
	for {
		current := b.State()
		if current.IsTerminal() {
			break
		}
		if b.state.CompareAndSwap(int32(current), int32(StateStopped)) {
			break
		}
	}
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.finish()
}

// WaitForReady blocks until Running, a terminal state, or ctx cancellation.
func (b *Base) WaitForReady(ctx context.Context) error {
	select {
	case <-b.readyCh:
		return nil
	case <-b.doneCh:
		if err := b.LastError(); err != nil {
			return err
		}
		return fmt.Errorf("server ended in state %s before becoming ready", b.State())
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Ready is closed when the incarnation reaches Running.
func (b *Base) Ready() <-chan struct{} { return b.readyCh }

// Done is closed once the incarnation reaches a terminal state.
func (b *Base) Done() <-chan struct{} { return b.doneCh }

// Go runs fn on a tracked goroutine; WaitForShutdown waits for it.
func (b *Base) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// WaitForShutdown blocks until every goroutine started with Go has returned.
func (b *Base) WaitForShutdown() {
	b.wg.Wait()
}

// SendError offers err to Err() without blocking; it is dropped when full.
func (b *Base) SendError(err error) {
	select {
	case b.errCh <- err:
	default:
	}
}

func (b *Base) finish() {
	b.doneOnce.Do(func() { close(b.doneCh) })
}
