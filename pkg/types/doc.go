// SPDX-License-Identifier: MPL-2.0

// Package types holds small validated value types shared across fxbridge:
// the command server's listen port, the restart policy bounds, and CLI exit codes.
package types
