// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/logsink"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	// DefaultRefresh is how often the dashboard re-reads the control surface.
	DefaultRefresh = 500 * time.Millisecond

	defaultWidth  = 80
	defaultHeight = 24

	// statusLines is the height of the status panel including its border.
	statusLines = 8
)

type (
	// ControlSurface is the part of the command server the dashboard drives.
	ControlSurface interface {
		Start(port types.ListenPort) error
		Stop()
		Restart() error
		SetAutoRestart(enabled bool)
		ResetRestartCounter()
		Status() cmdserver.Status
		Logs() []logsink.Entry
		Targets() []effects.Target
	}

	// Option configures a Model.
	Option func(*Model)

	// Model is the dashboard's bubbletea model.
	Model struct {
		surface ControlSurface
		styles  Styles
		keys    keyMap
		help    help.Model
		refresh time.Duration

		status  cmdserver.Status
		logs    []logsink.Entry
		targets []effects.Target
		lastErr error

		log            viewport.Model
		width, height  int
		showTechniques bool
		follow         bool
		quitting       bool
	}

	tickMsg time.Time
)

// WithStyles replaces the default palette.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithRefresh sets the polling interval. Non-positive values are ignored.
func WithRefresh(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refresh = d
		}
	}
}

// New creates a dashboard over surface.
func New(surface ControlSurface, opts ...Option) *Model {
	m := &Model{
		surface: surface,
		styles:  NewStyles(nil),
		keys:    defaultKeyMap(),
		help:    help.New(),
		refresh: DefaultRefresh,
		follow:  true,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = viewport.New(m.width, m.logHeight())
	m.poll()
	return m
}

// Run shows the dashboard on the current terminal until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, surface ControlSurface, opts ...Option) error {
	p := tea.NewProgram(New(surface, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.poll()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.log.Width = msg.Width
		m.log.Height = m.logHeight()
		m.renderLog()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit, true
	case key.Matches(msg, m.keys.Start):
		m.lastErr = m.surface.Start(m.status.Port)
	case key.Matches(msg, m.keys.Stop):
		m.surface.Stop()
		m.lastErr = nil
	case key.Matches(msg, m.keys.Restart):
		m.lastErr = m.surface.Restart()
	case key.Matches(msg, m.keys.AutoRestart):
		m.surface.SetAutoRestart(!m.status.AutoRestart)
		m.lastErr = nil
	case key.Matches(msg, m.keys.ResetCount):
		m.surface.ResetRestartCounter()
		m.lastErr = nil
	case key.Matches(msg, m.keys.Techniques):
		m.showTechniques = !m.showTechniques
		m.log.Height = m.logHeight()
	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
	default:
		return nil, false
	}
	m.poll()
	return nil, true
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("fxbridge command server"))
	b.WriteString("\n")
	b.WriteString(m.styles.Panel.Render(m.statusView()))
	b.WriteString("\n")
	if m.showTechniques {
		b.WriteString(m.styles.Panel.Render(m.techniquesView()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Label.Render("Activity Log:"))
	if !m.follow {
		b.WriteString(m.styles.Muted.Render(" (paused)"))
	}
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(m.styles.Err.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

// Status returns the snapshot the dashboard last drew.
func (m *Model) Status() cmdserver.Status { return m.status }

func (m *Model) statusView() string {
	st := m.status

	server := "Stopped"
	if st.Running {
		server = "Running"
	}
	line := "Server Status: " + server
	if st.Running {
		if st.Healthy {
			line += " " + m.styles.Healthy.Render("(Healthy)")
		} else {
			line += " " + m.styles.Unhealthy.Render("(Unhealthy)")
		}
	}

	client := "None"
	if st.ClientConnected {
		client = st.ClientAddress
	}

	lines := []string{
		line,
		fmt.Sprintf("Port: %d", st.Port),
		"Client: " + client,
		fmt.Sprintf("Commands Received: %d", st.CommandsReceived),
		fmt.Sprintf("Restart Count: %d/%d", st.RestartCount, st.MaxRestartAttempts),
		fmt.Sprintf("Auto-Restart: %s (delay %ds)", effects.OnOff(st.AutoRestart), st.RestartDelay),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) techniquesView() string {
	if len(m.targets) == 0 {
		return m.styles.Muted.Render("No techniques available")
	}
	lines := make([]string, 0, len(m.targets)+2)
	for _, t := range m.targets {
		lines = append(lines, fmt.Sprintf("%-24s %s", t.Name, effects.OnOff(t.Enabled)))
	}
	lines = append(lines,
		m.styles.Muted.Render("Command Format: <ACTION> <technique_name>"),
		m.styles.Muted.Render("Actions: TOGGLE, ENABLE/ON, DISABLE/OFF"),
	)
	return strings.Join(lines, "\n")
}

// poll refreshes every snapshot from the control surface.
func (m *Model) poll() {
	m.status = m.surface.Status()
	m.logs = m.surface.Logs()
	m.targets = m.surface.Targets()
	m.renderLog()
}

func (m *Model) renderLog() {
	var b strings.Builder
	for i, e := range m.logs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.styles.Muted.Render(e.Timestamp.Format("[15:04:05]")))
		b.WriteByte(' ')
		b.WriteString(m.severityStyle(e.Severity).Render(e.Message))
	}
	m.log.SetContent(b.String())
	if m.follow {
		m.log.GotoBottom()
	}
}

func (m *Model) severityStyle(s logsink.Severity) lipgloss.Style {
	if st, ok := m.styles.Severity[s]; ok {
		return st
	}
	return m.styles.Label
}

func (m *Model) logHeight() int {
	used := 1 + statusLines + 1 + 2 // title, panel, log label, help and error
	if m.showTechniques {
		used += len(m.targets) + 4
	}
	if h := m.height - used; h > 3 {
		return h
	}
	return 3
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}
