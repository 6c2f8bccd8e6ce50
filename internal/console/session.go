// SPDX-License-Identifier: MPL-2.0

package console

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/fxbridge/fxbridge/internal/tui"
)

// commandMiddleware answers exec sessions and refuses shells without a PTY.
// Interactive PTY sessions fall through to the dashboard.
func (s *Server) commandMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			args := sess.Command()
			if len(args) > 0 {
				s.logger.Debug("console command", "user", sess.User(), "args", args)
				code := Execute(s.surface, args, sess, sess.Stderr())
				_ = sess.Exit(int(code))
				return
			}

			if _, _, isPty := sess.Pty(); !isPty {
				wish.Fatalln(sess, "no command given and no PTY requested; try: ssh -t <host> or ssh <host> help")
				return
			}
			next(sess)
		}
	}
}

// dashboardHandler builds a dashboard that renders with the session's
// colour profile.
func (s *Server) dashboardHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	s.logger.Debug("dashboard session", "user", sess.User(), "remote", sess.RemoteAddr())
	styles := tui.NewStyles(bubbletea.MakeRenderer(sess))
	return tui.New(s.surface, tui.WithStyles(styles)), []tea.ProgramOption{tea.WithAltScreen()}
}
