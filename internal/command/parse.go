// SPDX-License-Identifier: MPL-2.0

package command

import (
	"strings"
	"unicode"
)

const (
	// Unknown is an unrecognised action token; the raw token is kept on Command.
	Unknown Action = iota
	// Toggle flips the current state.
	Toggle
	// Enable sets the state to on.
	Enable
	// Disable sets the state to off.
	Disable
)

type (
	// Action is the verb of a command line.
	Action int

	// Command is a parsed protocol line.
	Command struct {
		// RawAction is the upper-cased first token.
		RawAction string
		// Target is the remainder of the line with leading whitespace removed.
		Target string
		Action Action
	}
)

// String returns the canonical verb.
func (a Action) String() string {
	switch a {
	case Toggle:
		return "TOGGLE"
	case Enable:
		return "ENABLE"
	case Disable:
		return "DISABLE"
	default:
		return "UNKNOWN"
	}
}

// ParseAction maps an action token to its Action. Matching is case-insensitive.
func ParseAction(token string) Action {
	switch strings.ToUpper(token) {
	case "TOGGLE":
		return Toggle
	case "ENABLE", "ON":
		return Enable
	case "DISABLE", "OFF":
		return Disable
	default:
		return Unknown
	}
}

// Parse splits a line into its action and target. It never fails: an empty
// line yields an Unknown action with an empty target.
func Parse(line string) Command {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)

	token, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token, rest = line[:i], line[i:]
	}

	raw := strings.ToUpper(token)
	return Command{
		RawAction: raw,
		Target:    strings.TrimLeftFunc(rest, unicode.IsSpace),
		Action:    ParseAction(raw),
	}
}

// Resolve finds the effect a target refers to. Names are tried in order and
// the first one equal to target or containing it case-insensitively wins.
func Resolve(names []string, target string) (string, bool) {
	needle := strings.ToLower(target)
	for _, name := range names {
		if name == target || strings.Contains(strings.ToLower(name), needle) {
			return name, true
		}
	}
	return "", false
}
