// SPDX-License-Identifier: MPL-2.0

package feed

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("GET /ws", s.handleStream)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.src.Status())
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.src.Logs())
}

// handleStream pushes every new log entry to the client as a JSON text
// frame until the client goes away or the server stops. Inbound frames are
// discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.streams.Add(1)
	defer s.streams.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Read-only loopback feed; browser dashboards on any origin may read it.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow() //nolint:errcheck // best-effort after a clean close

	entries, cancel := s.src.SubscribeLogs(streamBuffer)
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("stream opened", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stream closed by client", "remote", r.RemoteAddr)
			return
		case <-s.Context().Done():
			_ = conn.Close(websocket.StatusGoingAway, "server stopping")
			return
		case e, ok := <-entries:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "done")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, e)
			writeCancel()
			if err != nil {
				s.logger.Debug("stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
