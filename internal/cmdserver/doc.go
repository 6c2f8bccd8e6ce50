// SPDX-License-Identifier: MPL-2.0

// Package cmdserver implements the command server: a supervised TCP listener
// that accepts one controller at a time, dispatches each received line to the
// effect capability and acknowledges it with "OK\n".
//
// Three kinds of goroutine share one State: the listener (one incarnation per
// spawn), the monitor (automatic restart and heartbeat watchdog) and callers
// of the Controller. Workers never return errors to callers; they log to the
// sink and flip state flags, and the monitor reacts to those flags.
package cmdserver
