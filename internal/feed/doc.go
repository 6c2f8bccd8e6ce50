// SPDX-License-Identifier: MPL-2.0

// Package feed serves a read-only HTTP view of the command server: health,
// a JSON status snapshot, the retained log entries and a websocket stream of
// new log entries.
package feed
