// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Info is a neutral status message.
	Info Severity = iota
	// Success reports a completed action, such as an effect state change.
	Success
	// Warning reports a recoverable problem.
	Warning
	// Error reports a failure that changed server health.
	Error
)

// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
var ErrInvalidSeverity = errors.New("invalid severity")

type (
	// Severity classifies a log entry.
	Severity int

	// InvalidSeverityError is returned when a Severity is not one of the defined levels.
	InvalidSeverityError struct {
		Value Severity
	}

	// Entry is one immutable log line.
	Entry struct {
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
		Severity  Severity  `json:"severity"`
	}
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Validate returns an error wrapping ErrInvalidSeverity for undefined values.
func (s Severity) Validate() error {
	switch s {
	case Info, Success, Warning, Error:
		return nil
	default:
		return &InvalidSeverityError{Value: s}
	}
}

// MarshalText encodes the severity by name so JSON consumers see "warning", not 2.
func (s Severity) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	for _, candidate := range []Severity{Info, Success, Warning, Error} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidSeverity, text)
}

// Error implements the error interface for InvalidSeverityError.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid severity %d (valid: 0=info, 1=success, 2=warning, 3=error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }
