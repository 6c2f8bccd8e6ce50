// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/core/serverbase"
	"github.com/fxbridge/fxbridge/internal/logsink"
)

const (
	// DefaultAcceptPoll bounds each accept wait so the loop can refresh the
	// heartbeat and observe stop requests.
	DefaultAcceptPoll = 100 * time.Millisecond
	// DefaultReadPoll bounds each client read wait.
	DefaultReadPoll = 10 * time.Millisecond
	// DefaultBufferSize is the maximum number of bytes taken per read.
	DefaultBufferSize = 1024

	ack = "OK\n"
)

type (
	// LineHandler consumes one received protocol line.
	LineHandler interface {
		Dispatch(line string)
	}

	// ListenerConfig tunes the polling loop. Zero fields take defaults.
	ListenerConfig struct {
		AcceptPoll time.Duration
		ReadPoll   time.Duration
		BufferSize int
	}

	// Listener is one incarnation of the TCP command listener. It binds the
	// port recorded in State, serves one client at a time and exits when the
	// state says stop, the socket fails, or ForceClose is called.
	Listener struct {
		*serverbase.Base

		state   *State
		handler LineHandler
		sink    logsink.Sink
		logger  *log.Logger
		cfg     ListenerConfig

		mu     sync.Mutex
		ln     net.Listener
		conn   net.Conn
		closed bool
	}
)

// NewListener creates an unstarted incarnation.
func NewListener(state *State, handler LineHandler, sink logsink.Sink, logger *log.Logger, cfg ListenerConfig) *Listener {
	if cfg.AcceptPoll <= 0 {
		cfg.AcceptPoll = DefaultAcceptPoll
	}
	if cfg.ReadPoll <= 0 {
		cfg.ReadPoll = DefaultReadPoll
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		Base:    serverbase.NewBase(),
		state:   state,
		handler: handler,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run binds, serves and cleans up. It never returns an error: outcomes are
// reported through the sink and the shared State.
func (l *Listener) Run() {
	if err := l.TransitionToStarting(context.Background()); err != nil {
		// Stopped before it ever ran; whoever stopped it owns the flags.
		return
	}

	port := l.state.Port()
	l.logger.Debug("listener incarnation starting", "id", l.ID(), "port", port)
	l.state.beat()

	var lc net.ListenConfig
	ln, err := lc.Listen(l.Context(), "tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		if l.Context().Err() != nil {
			l.state.markStopped()
			l.TransitionToStopped()
			return
		}
		l.sink.Append(logsink.Error, fmt.Sprintf("Bind failed on port %d", port))
		l.logger.Debug("bind failed", "id", l.ID(), "error", err)
		l.state.markStopped()
		l.TransitionToFailed(fmt.Errorf("bind port %d: %w", port, err))
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = ln.Close()
		l.state.markStopped()
		l.TransitionToStopped()
		return
	}
	l.ln = ln
	l.mu.Unlock()

	l.sink.Append(logsink.Success, fmt.Sprintf("Server listening on port %d", port))
	l.state.markListening()
	l.TransitionToRunning()

	l.acceptLoop(ln)

	_ = ln.Close()
	l.state.markStopped()
	l.sink.Append(logsink.Info, "Server stopped")
	l.TransitionToStopped()
}

// ForceClose closes the listening and client sockets so Run returns promptly.
// It is safe to call from any goroutine, any number of times.
func (l *Listener) ForceClose() {
	l.TransitionToStopping()

	l.mu.Lock()
	l.closed = true
	ln, conn := l.ln, l.conn
	l.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
}

func (l *Listener) acceptLoop(ln net.Listener) {
	deadliner, _ := ln.(interface{ SetDeadline(time.Time) error })

	for l.state.active() && l.Context().Err() == nil {
		l.state.beat()

		if deadliner != nil {
			_ = deadliner.SetDeadline(time.Now().Add(l.cfg.AcceptPoll))
		}
		conn, err := ln.Accept()
		if err != nil {
			switch {
			case isTimeout(err), errors.Is(err, syscall.ECONNABORTED):
				continue
			case errors.Is(err, net.ErrClosed):
				return
			default:
				l.sink.Append(logsink.Error, fmt.Sprintf("Accept error: %v", err))
				l.state.markUnhealthy()
				return
			}
		}

		l.serveClient(conn)
	}
}

func (l *Listener) serveClient(conn net.Conn) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.conn = conn
	l.mu.Unlock()

	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	l.state.setClient(addr)
	l.sink.Append(logsink.Info, "Client connected from "+addr)

	buf := make([]byte, l.cfg.BufferSize)
	for l.state.active() && l.Context().Err() == nil {
		l.state.beat()

		_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReadPoll))
		n, err := conn.Read(buf)
		if n > 0 && !l.handleChunk(conn, buf[:n]) {
			break
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				l.sink.Append(logsink.Warning, fmt.Sprintf("Socket error: %v", err))
			}
			break
		}
	}

	l.mu.Lock()
	l.conn = nil
	l.mu.Unlock()
	_ = conn.Close()

	l.state.clearClient()
	l.sink.Append(logsink.Info, "Client disconnected")
}

// handleChunk dispatches and acknowledges each line in one read. It returns
// false when the acknowledgement could not be written.
func (l *Listener) handleChunk(conn net.Conn, chunk []byte) bool {
	for _, line := range splitLines(string(chunk)) {
		l.sink.Append(logsink.Info, "Received: "+line)
		l.handler.Dispatch(line)

		if _, err := io.WriteString(conn, ack); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.sink.Append(logsink.Warning, fmt.Sprintf("Socket error: %v", err))
			}
			return false
		}
	}
	return true
}

// splitLines cuts a chunk on '\n', strips one trailing '\r' from each piece
// and drops the empty piece after a final newline. Lines are not reassembled
// across reads.
func splitLines(chunk string) []string {
	parts := strings.Split(chunk, "\n")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
