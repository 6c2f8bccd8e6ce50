// SPDX-License-Identifier: MPL-2.0

// Package tui implements the operator dashboard: a bubbletea program that
// shows the command server's status and activity log and drives its control
// surface from the keyboard. The same model runs in a local terminal and
// inside SSH console sessions.
package tui
