// SPDX-License-Identifier: MPL-2.0

package console

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHostAddress is the sentinel error wrapped by InvalidHostAddressError.
	ErrInvalidHostAddress = errors.New("invalid host address")
	// ErrNoPassword is returned when the console is configured without an
	// operator password.
	ErrNoPassword = errors.New("console password is not set")
	// ErrInvalidConsoleConfig is the sentinel error wrapped by InvalidConsoleConfigError.
	ErrInvalidConsoleConfig = errors.New("invalid console config")
)

type (
	// HostAddress is the interface the console binds to.
	HostAddress string

	// InvalidHostAddressError is returned when a HostAddress value is
	// empty or whitespace-only.
	InvalidHostAddressError struct {
		Value HostAddress
	}

	// InvalidConsoleConfigError collects the field errors of a Config.
	InvalidConsoleConfigError struct {
		FieldErrors []error
	}
)

// String returns the string representation of the HostAddress.
func (h HostAddress) String() string { return string(h) }

// Validate returns nil if the HostAddress is non-empty and not whitespace-only.
func (h HostAddress) Validate() error {
	if strings.TrimSpace(string(h)) == "" {
		return &InvalidHostAddressError{Value: h}
	}
	return nil
}

// Error implements the error interface for InvalidHostAddressError.
func (e *InvalidHostAddressError) Error() string {
	return fmt.Sprintf("invalid host address %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidHostAddress for errors.Is() compatibility.
func (e *InvalidHostAddressError) Unwrap() error { return ErrInvalidHostAddress }

// Error implements the error interface for InvalidConsoleConfigError.
func (e *InvalidConsoleConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid console config: " + strings.Join(msgs, "; ")
}

// Unwrap returns the sentinel and every field error.
func (e *InvalidConsoleConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConsoleConfig}, e.FieldErrors...)
}
