// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/fxbridge/fxbridge/pkg/types"
)

// ExitError carries the process exit code for a failed command out of RunE.
// Execute turns it into os.Exit: types.ExitConfig when the configuration or
// a flag is invalid, types.ExitUnreachable when `send` cannot reach the
// command server or gets no acknowledgement. Any other error exits with
// types.ExitFailure.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// configExit reports err as an invalid configuration.
func configExit(err error) *ExitError {
	return &ExitError{Code: types.ExitConfig, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	switch e.Code {
	case types.ExitConfig:
		return fmt.Sprintf("exit status %d: invalid configuration", e.Code)
	case types.ExitUnreachable:
		return fmt.Sprintf("exit status %d: command server unreachable", e.Code)
	default:
		return fmt.Sprintf("exit status %d", e.Code)
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
