// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on error, so test
// bodies stay focused on behaviour: environment and file setup (MustSetenv,
// MustWriteFile), resource cleanup (MustClose, MustStop) and network test
// plumbing (FreePort, WaitFor).
package testutil
