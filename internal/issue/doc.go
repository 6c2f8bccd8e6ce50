// SPDX-License-Identifier: MPL-2.0

// Package issue provides operator-facing errors: ActionableError carries the
// failed operation, the resource involved and fix suggestions, and the issue
// catalog renders longer Markdown guidance with glamour.
package issue
