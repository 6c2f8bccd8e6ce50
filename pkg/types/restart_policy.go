// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// MinRestartDelay is the shortest allowed cooldown between automatic restarts.
	MinRestartDelay RestartDelay = 1
	// MaxRestartDelay is the longest allowed cooldown between automatic restarts.
	MaxRestartDelay RestartDelay = 60

	// MinRestartAttempts is the smallest allowed automatic restart cap.
	MinRestartAttempts MaxRestartAttempts = 1
	// MaxRestartAttemptsLimit is the largest allowed automatic restart cap.
	MaxRestartAttemptsLimit MaxRestartAttempts = 50
)

var (
	// ErrInvalidRestartDelay is the sentinel error wrapped by InvalidRestartDelayError.
	ErrInvalidRestartDelay = errors.New("invalid restart delay")
	// ErrInvalidMaxRestartAttempts is the sentinel error wrapped by InvalidMaxRestartAttemptsError.
	ErrInvalidMaxRestartAttempts = errors.New("invalid max restart attempts")
)

type (
	// RestartDelay is the cooldown, in whole seconds, between consecutive
	// automatic restart attempts.
	RestartDelay int

	// MaxRestartAttempts caps consecutive automatic restart attempts before
	// auto-restart disables itself.
	MaxRestartAttempts int

	// InvalidRestartDelayError is returned when a RestartDelay is outside 1–60.
	InvalidRestartDelayError struct {
		Value RestartDelay
	}

	// InvalidMaxRestartAttemptsError is returned when a MaxRestartAttempts is outside 1–50.
	InvalidMaxRestartAttemptsError struct {
		Value MaxRestartAttempts
	}
)

// String returns the delay in seconds.
func (d RestartDelay) String() string { return strconv.Itoa(int(d)) + "s" }

// Duration converts the delay to a time.Duration.
func (d RestartDelay) Duration() time.Duration { return time.Duration(d) * time.Second }

// Validate returns an error if the delay is outside 1–60 seconds.
func (d RestartDelay) Validate() error {
	if d < MinRestartDelay || d > MaxRestartDelay {
		return &InvalidRestartDelayError{Value: d}
	}
	return nil
}

// String returns the decimal string representation of the cap.
func (m MaxRestartAttempts) String() string { return strconv.Itoa(int(m)) }

// Validate returns an error if the cap is outside 1–50.
func (m MaxRestartAttempts) Validate() error {
	if m < MinRestartAttempts || m > MaxRestartAttemptsLimit {
		return &InvalidMaxRestartAttemptsError{Value: m}
	}
	return nil
}

// Error implements the error interface for InvalidRestartDelayError.
func (e *InvalidRestartDelayError) Error() string {
	return fmt.Sprintf("invalid restart delay %d: must be %d-%d seconds", e.Value, MinRestartDelay, MaxRestartDelay)
}

// Unwrap returns ErrInvalidRestartDelay for errors.Is() compatibility.
func (e *InvalidRestartDelayError) Unwrap() error { return ErrInvalidRestartDelay }

// Error implements the error interface for InvalidMaxRestartAttemptsError.
func (e *InvalidMaxRestartAttemptsError) Error() string {
	return fmt.Sprintf("invalid max restart attempts %d: must be %d-%d", e.Value, MinRestartAttempts, MaxRestartAttemptsLimit)
}

// Unwrap returns ErrInvalidMaxRestartAttempts for errors.Is() compatibility.
func (e *InvalidMaxRestartAttemptsError) Unwrap() error { return ErrInvalidMaxRestartAttempts }
