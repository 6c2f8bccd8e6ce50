// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fxbridge/fxbridge/internal/logsink"
)

// Styles holds the dashboard's lipgloss styles. Build them from the renderer
// of the output they are drawn on so SSH sessions get the client's colour
// profile.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Healthy   lipgloss.Style
	Unhealthy lipgloss.Style
	Muted     lipgloss.Style
	Panel     lipgloss.Style
	Err       lipgloss.Style
	Severity  map[logsink.Severity]lipgloss.Style
}

// NewStyles returns the default palette for r. A nil r uses the default
// renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Label:     r.NewStyle().Foreground(lipgloss.Color("252")),
		Healthy:   r.NewStyle().Foreground(lipgloss.Color("42")),
		Unhealthy: r.NewStyle().Foreground(lipgloss.Color("196")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("240")),
		Panel:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		Err:       r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Severity: map[logsink.Severity]lipgloss.Style{
			logsink.Info:    r.NewStyle().Foreground(lipgloss.Color("252")),
			logsink.Success: r.NewStyle().Foreground(lipgloss.Color("42")),
			logsink.Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
			logsink.Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}
