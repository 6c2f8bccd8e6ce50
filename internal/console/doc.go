// SPDX-License-Identifier: MPL-2.0

// Package console provides the SSH operator console, built on Wish.
//
// Operators authenticate with the configured password. A session that runs
// a command (ssh host status) gets a one-shot textual answer; an interactive
// session with a PTY gets the dashboard.
package console
