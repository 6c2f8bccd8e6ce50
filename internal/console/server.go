// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/fxbridge/fxbridge/internal/core/serverbase"
	"github.com/fxbridge/fxbridge/internal/tui"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	// DefaultHost is the loopback interface the console binds by default.
	DefaultHost HostAddress = "127.0.0.1"
	// DefaultPort is the default console port.
	DefaultPort = 2222

	defaultStartupTimeout  = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

type (
	// Surface is everything the console can read and drive.
	Surface interface {
		tui.ControlSurface
		SetRestartDelay(d types.RestartDelay) error
		SetMaxRestartAttempts(m types.MaxRestartAttempts) error
	}

	// Config holds immutable configuration for the console.
	Config struct {
		// Host is the address to bind to (default: 127.0.0.1).
		Host HostAddress
		// Port is the port to listen on. 0 picks a free port.
		Port int
		// Password is the operator password. Required.
		Password string
		// HostKeyPath is the PEM host key, created on first use. Empty means
		// an ephemeral key generated at start.
		HostKeyPath string
		// StartupTimeout is the max time to wait for the server to be ready (default: 5s).
		StartupTimeout time.Duration
		// ShutdownTimeout bounds Stop when the caller's context has no deadline (default: 10s).
		ShutdownTimeout time.Duration
		// Logger receives console diagnostics. nil means a "console" prefixed default.
		Logger *log.Logger
	}

	// Server is the SSH console. A Server instance is single-use: once
	// stopped or failed, create a new instance.
	Server struct {
		*serverbase.Base

		cfg     Config
		surface Surface
		logger  *log.Logger

		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string
	}
)

// DefaultConfig returns a loopback console on port 2222 without a password.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		StartupTimeout:  defaultStartupTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Validate checks the fields Start depends on.
func (c Config) Validate() error {
	var errs []error
	if err := c.Host.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 0-65535", c.Port))
	}
	if c.Password == "" {
		errs = append(errs, ErrNoPassword)
	}
	if len(errs) > 0 {
		return &InvalidConsoleConfigError{FieldErrors: errs}
	}
	return nil
}

// New creates an unstarted console over surface.
func New(surface Surface, cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("console")
	}

	return &Server{
		Base:    serverbase.NewBase(),
		cfg:     cfg,
		surface: surface,
		logger:  logger,
	}
}

// Start validates the configuration, binds and blocks until the server is
// ready, fails, or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		s.TransitionToFailed(err)
		return err
	}
	if err := s.TransitionToStarting(ctx); err != nil {
		return err
	}

	startupCtx, startupCancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer startupCancel()

	addr := net.JoinHostPort(s.cfg.Host.String(), strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.TransitionToFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return s.LastError()
	}

	opts := []ssh.Option{
		wish.WithAddress(addr),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		// The last middleware runs first: commands are answered before the
		// dashboard middleware ever sees the session.
		wish.WithMiddleware(
			bubbletea.Middleware(s.dashboardHandler),
			s.commandMiddleware(),
		),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}

	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = listener.Close()
		s.TransitionToFailed(fmt.Errorf("failed to create SSH server: %w", err))
		return s.LastError()
	}

	s.srvMu.Lock()
	s.srv = srv
	s.listener = listener
	s.addr = listener.Addr().String()
	s.srvMu.Unlock()

	s.Go(s.serve)

	select {
	case <-s.Ready():
		s.logger.Info("console started", "address", s.Address())
		return nil
	case err := <-s.Err():
		s.TransitionToFailed(err)
		return err
	case <-startupCtx.Done():
		_ = listener.Close()
		s.TransitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.LastError()
	}
}

// Stop shuts the server down, waiting for sessions to end until ctx (or the
// shutdown timeout) expires. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	if !s.TransitionToStopping() {
		s.WaitForShutdown()
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	var shutdownErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !isClosedConnError(err) {
			s.logger.Error("shutdown error", "error", err)
			shutdownErr = err
			_ = srv.Close()
		}
	}
	if listener != nil {
		_ = listener.Close()
	}

	s.WaitForShutdown()
	s.TransitionToStopped()
	s.logger.Info("console stopped")

	return shutdownErr
}

// Address returns the bound host:port, or "" before Start succeeds.
func (s *Server) Address() string {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	return s.addr
}

// Port returns the bound port, or 0 before Start succeeds.
func (s *Server) Port() int {
	_, portStr, err := net.SplitHostPort(s.Address())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

func (s *Server) serve() {
	s.TransitionToRunning()

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	if err := srv.Serve(listener); err != nil {
		if errors.Is(err, ssh.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return
		}
		s.SendError(fmt.Errorf("serve error: %w", err))
	}
}

// isClosedConnError reports the error Shutdown returns when the listener
// was already closed.
func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
