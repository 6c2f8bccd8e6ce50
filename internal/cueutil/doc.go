// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// decodes them, reporting failures with JSON-path style locations such as
// "techniques[1].name".
package cueutil
