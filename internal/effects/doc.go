// SPDX-License-Identifier: MPL-2.0

// Package effects defines the capability through which the command server
// reads and toggles named boolean effects in the host, plus an in-memory
// Registry implementation.
package effects
