// SPDX-License-Identifier: MPL-2.0

package effects

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrDuplicateTarget is returned when a Registry is seeded with the same name twice.
var ErrDuplicateTarget = errors.New("duplicate effect name")

type (
	// Capability is the host's effect-control surface. Implementations must be
	// safe to call from the listener goroutine while the host is also using them.
	// Methods must return promptly: the listener calls them inline, and Stop,
	// Restart and the heartbeat teardown all wait for the listener to exit.
	Capability interface {
		// EnumerateTargets returns the effect names in a stable order.
		EnumerateTargets() []string
		GetState(name string) bool
		SetState(name string, enabled bool)
	}

	// Target seeds one effect in a Registry.
	Target struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}

	// Registry is a thread-safe in-memory Capability. Enumeration order is the
	// seed order.
	Registry struct {
		mu    sync.RWMutex
		order []string
		state map[string]bool
	}
)

// NewRegistry builds a Registry from seed targets. Empty names are rejected
// as are duplicates.
func NewRegistry(targets ...Target) (*Registry, error) {
	r := &Registry{state: make(map[string]bool, len(targets))}
	for _, t := range targets {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, errors.New("effect name must not be empty")
		}
		if _, dup := r.state[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, name)
		}
		r.order = append(r.order, name)
		r.state[name] = t.Enabled
	}
	return r, nil
}

// EnumerateTargets implements Capability.
func (r *Registry) EnumerateTargets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// GetState implements Capability. Unknown names report false.
func (r *Registry) GetState(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[name]
}

// SetState implements Capability. Unknown names are ignored.
func (r *Registry) SetState(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state[name]; ok {
		r.state[name] = enabled
	}
}

// Targets returns every effect with its current state, in enumeration order.
func (r *Registry) Targets() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Target, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Target{Name: name, Enabled: r.state[name]})
	}
	return out
}

// Snapshot reads every target of any Capability. A nil capability yields nil.
func Snapshot(c Capability) []Target {
	if c == nil {
		return nil
	}
	names := c.EnumerateTargets()
	out := make([]Target, 0, len(names))
	for _, name := range names {
		out = append(out, Target{Name: name, Enabled: c.GetState(name)})
	}
	return out
}

// Describe renders the summary line followed by one line per effect.
func Describe(c Capability) string {
	targets := Snapshot(c)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated available techniques: %d found\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(&sb, "  %-24s %s\n", t.Name, OnOff(t.Enabled))
	}
	return sb.String()
}

// OnOff renders a state the way the command server reports it.
func OnOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}
