// SPDX-License-Identifier: MPL-2.0

package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the dashboard bindings. It satisfies help.KeyMap.
type keyMap struct {
	Start       key.Binding
	Stop        key.Binding
	Restart     key.Binding
	AutoRestart key.Binding
	ResetCount  key.Binding
	Techniques  key.Binding
	Follow      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Restart:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		AutoRestart: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-restart")),
		ResetCount:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "reset counter")),
		Techniques:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "techniques")),
		Follow:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow log")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Restart, k.AutoRestart, k.ResetCount, k.Techniques, k.Follow, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Restart},
		{k.AutoRestart, k.ResetCount},
		{k.Techniques, k.Follow, k.Quit},
	}
}
