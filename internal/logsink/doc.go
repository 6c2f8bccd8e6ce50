// SPDX-License-Identifier: MPL-2.0

// Package logsink holds the operator-facing event log of the command server:
// a bounded FIFO of severity-tagged entries that every worker appends to and
// the dashboard, console and feed read from.
package logsink
