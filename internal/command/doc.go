// SPDX-License-Identifier: MPL-2.0

// Package command parses control-protocol lines and applies them to an
// effects.Capability.
//
// A line is "<ACTION> <target>" where ACTION is TOGGLE, ENABLE/ON or
// DISABLE/OFF (case-insensitive) and target names an effect. The first effect,
// in enumeration order, whose name equals target or contains it
// case-insensitively is the one acted on.
package command
