// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"sync"

	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/logsink"
)

type (
	// Recorder counts received commands. The command server's shared state
	// implements it.
	Recorder interface {
		RecordCommand()
	}

	// Dispatcher applies protocol lines to a Capability and reports the
	// outcome to a Sink. It never returns errors: every outcome is a log entry.
	Dispatcher struct {
		mu       sync.RWMutex
		effects  effects.Capability
		sink     logsink.Sink
		recorder Recorder
	}
)

// NewDispatcher creates a Dispatcher. capability may be nil until the host
// attaches one with SetCapability.
func NewDispatcher(capability effects.Capability, sink logsink.Sink, recorder Recorder) *Dispatcher {
	return &Dispatcher{effects: capability, sink: sink, recorder: recorder}
}

// SetCapability swaps the effect capability and logs how many targets it exposes.
func (d *Dispatcher) SetCapability(c effects.Capability) {
	d.mu.Lock()
	d.effects = c
	d.mu.Unlock()

	if c != nil {
		d.sink.Append(logsink.Info, fmt.Sprintf("Updated available techniques: %d found", len(c.EnumerateTargets())))
	}
}

// Capability returns the attached capability, or nil.
func (d *Dispatcher) Capability() effects.Capability {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.effects
}

// Dispatch handles one line. A panic inside the capability is recovered and
// logged so the listener goroutine survives.
func (d *Dispatcher) Dispatch(line string) {
	defer func() {
		if r := recover(); r != nil {
			d.sink.Append(logsink.Error, fmt.Sprintf("Command processing error: %v", r))
		}
	}()

	if d.recorder != nil {
		d.recorder.RecordCommand()
	}

	c := d.Capability()
	if c == nil {
		d.sink.Append(logsink.Error, "No runtime available")
		return
	}

	cmd := Parse(line)
	if cmd.Target == "" {
		d.sink.Append(logsink.Warning, "No technique specified in command")
		return
	}

	name, ok := Resolve(c.EnumerateTargets(), cmd.Target)
	if !ok {
		d.sink.Append(logsink.Warning, "Technique not found: "+cmd.Target)
		return
	}

	var next bool
	switch cmd.Action {
	case Toggle:
		next = !c.GetState(name)
	case Enable:
		next = true
	case Disable:
		next = false
	default:
		d.sink.Append(logsink.Warning, "Unknown action: "+cmd.RawAction)
		return
	}

	c.SetState(name, next)
	d.sink.Append(logsink.Success, fmt.Sprintf("Set %s to %s", name, effects.OnOff(next)))
}
