// SPDX-License-Identifier: MPL-2.0

package console

import (
	"crypto/subtle"

	"github.com/charmbracelet/ssh"
)

// passwordHandler accepts any user name with the operator password.
func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) != 1 {
		s.logger.Warn("rejected console login", "user", ctx.User(), "remote", ctx.RemoteAddr())
		return false
	}
	s.logger.Info("console login", "user", ctx.User(), "remote", ctx.RemoteAddr())
	return true
}

// publicKeyHandler rejects all public keys; the console is password-only.
func (s *Server) publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return false
}
