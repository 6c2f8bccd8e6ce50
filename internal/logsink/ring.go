// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/core/clock"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 100

type (
	// Sink accepts log lines. It is the only thing workers know about logging
	// to the operator.
	Sink interface {
		Append(sev Severity, msg string)
	}

	// Ring is a bounded FIFO Sink safe for concurrent use. Appends and
	// snapshots are serialised by one mutex; entries are never edited in place.
	Ring struct {
		mu      sync.Mutex
		buf     []Entry
		start   int
		count   int
		subs    map[int]chan Entry
		nextSub int

		clock  clock.Clock
		logger *log.Logger
	}

	// Option configures a Ring.
	Option func(*Ring)
)

// WithClock sets the time source used to stamp entries.
func WithClock(c clock.Clock) Option {
	return func(r *Ring) { r.clock = c }
}

// WithLogger mirrors every appended entry to a structured logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Ring) { r.logger = l }
}

// NewRing creates a Ring holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewRing(capacity int, opts ...Option) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Ring{
		buf:   make([]Entry, capacity),
		subs:  make(map[int]chan Entry),
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append stamps and stores a new entry, evicting the oldest on overflow.
func (r *Ring) Append(sev Severity, msg string) {
	r.mu.Lock()
	e := Entry{Message: msg, Timestamp: r.clock.Now(), Severity: sev}

	capacity := len(r.buf)
	if r.count < capacity {
		r.buf[(r.start+r.count)%capacity] = e
		r.count++
	} else {
		r.buf[r.start] = e
		r.start = (r.start + 1) % capacity
	}

	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
			// slow subscriber; the ring stays authoritative
		}
	}
	r.mu.Unlock()

	r.mirror(e)
}

// Snapshot returns a copy of the stored entries, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.count)
	for i := range r.count {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the maximum number of stored entries.
func (r *Ring) Capacity() int { return len(r.buf) }

// Subscribe returns a channel receiving entries appended from now on and a
// cancel func that closes it. Entries are dropped when the buffer is full.
func (r *Ring) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Entry, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

func (r *Ring) mirror(e Entry) {
	if r.logger == nil {
		return
	}
	switch e.Severity {
	case Error:
		r.logger.Error(e.Message)
	case Warning:
		r.logger.Warn(e.Message)
	case Success:
		r.logger.Info(e.Message, "severity", "success")
	default:
		r.logger.Info(e.Message)
	}
}
