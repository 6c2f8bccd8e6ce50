// SPDX-License-Identifier: MPL-2.0

package cmdserver

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while a listener is running.
	ErrAlreadyRunning = errors.New("command server is already running")
	// ErrNotStarted is returned by Restart when the server was never started
	// or has been stopped.
	ErrNotStarted = errors.New("command server is not started")
)
