// SPDX-License-Identifier: MPL-2.0

package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/core/serverbase"
	"github.com/fxbridge/fxbridge/internal/logsink"
)

const (
	// DefaultAddress is the loopback address used when none is configured.
	DefaultAddress = "127.0.0.1:7778"

	defaultStartupTimeout  = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	// streamBuffer is the per-websocket subscription buffer. A client that
	// falls further behind than this misses entries.
	streamBuffer = 64
	writeTimeout = 5 * time.Second
)

type (
	// Source is the read side of the command server the feed exposes.
	Source interface {
		Status() cmdserver.Status
		Logs() []logsink.Entry
		SubscribeLogs(buffer int) (<-chan logsink.Entry, func())
	}

	// Config holds immutable configuration for the feed server.
	Config struct {
		// Address is host:port to bind. Port 0 picks a free port.
		Address string
		// StartupTimeout bounds Start. Zero means 5s.
		StartupTimeout time.Duration
		// ShutdownTimeout bounds Stop when the caller's context has no deadline.
		ShutdownTimeout time.Duration
		// Logger receives server diagnostics. nil means a "feed" prefixed default.
		Logger *log.Logger
	}

	// Server is the HTTP feed. A Server is single-use: once stopped or
	// failed, create a new instance.
	Server struct {
		*serverbase.Base

		cfg    Config
		src    Source
		logger *log.Logger

		srvMu      sync.Mutex
		httpServer *http.Server
		listener   net.Listener
		addr       string

		// streams tracks websocket handlers, which http.Server.Shutdown
		// does not wait for once the connection is hijacked.
		streams sync.WaitGroup
	}
)

// New creates an unstarted feed server over src.
func New(src Source, cfg Config) *Server {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("feed")
	}

	return &Server{
		Base:   serverbase.NewBase(),
		cfg:    cfg,
		src:    src,
		logger: logger,
	}
}

// Start binds the address and blocks until the server is serving, fails,
// or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.TransitionToStarting(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", s.cfg.Address)
	if err != nil {
		s.TransitionToFailed(fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err))
		return s.LastError()
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.srvMu.Lock()
	s.listener = listener
	s.addr = listener.Addr().String()
	s.httpServer = srv
	s.srvMu.Unlock()

	s.Go(s.serve)

	select {
	case <-s.Ready():
		s.logger.Info("feed started", "address", s.Address())
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

// Stop shuts the server down and waits for open streams to end. Safe to
// call multiple times; later calls are no-ops.
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
	srv := s.httpServer
	s.srvMu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	s.WaitForShutdown()
	s.streams.Wait()
	s.TransitionToStopped()
	s.logger.Info("feed stopped")

	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Address returns the bound host:port, or "" before Start succeeds.
func (s *Server) Address() string {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	return s.addr
}

// URL returns the base http URL of the bound address.
func (s *Server) URL() string {
	return "http://" + s.Address()
}

func (s *Server) serve() {
	s.TransitionToRunning()

	s.srvMu.Lock()
	srv, listener := s.httpServer, s.listener
	s.srvMu.Unlock()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.SendError(fmt.Errorf("serve error: %w", err))
	}
}
