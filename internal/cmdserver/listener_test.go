// SPDX-License-Identifier: MPL-2.0

package cmdserver

import (
	"fmt"
	"io"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/fxbridge/fxbridge/internal/command"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/logsink"
	"github.com/fxbridge/fxbridge/pkg/types"
)

type listenerFixture struct {
	listener *Listener
	state    *State
	ring     *logsink.Ring
	registry *effects.Registry
	done     chan struct{}
}

func startListener(t *testing.T, port types.ListenPort) *listenerFixture {
	t.Helper()

	reg, err := effects.NewRegistry(effects.Target{Name: "MotionBlur"}, effects.Target{Name: "Bloom"})
	if err != nil {
		t.Fatal(err)
	}
	state := NewState(nil)
	state.beginRun(port)
	ring := logsink.NewRing(logsink.DefaultCapacity)
	d := command.NewDispatcher(reg, ring, state)

	f := &listenerFixture{
		listener: NewListener(state, d, ring, quietLogger(), ListenerConfig{AcceptPoll: 20 * time.Millisecond}),
		state:    state,
		ring:     ring,
		registry: reg,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		f.listener.Run()
	}()
	t.Cleanup(func() {
		f.listener.ForceClose()
		<-f.done
	})
	return f
}

func dial(t *testing.T, port types.ListenPort) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp4", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readAcks(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	buf := make([]byte, n*len(ack))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read acks: %v", err)
	}
	return string(buf)
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		chunk string
		want  []string
	}{
		{"enable Bloom\r\n", []string{"enable Bloom"}},
		{"enable Bloom\n", []string{"enable Bloom"}},
		{"enable Bloom", []string{"enable Bloom"}},
		{"a\nb\r\nc", []string{"a", "b", "c"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"\r\n", []string{""}},
	}
	for _, tt := range tests {
		if got := splitLines(tt.chunk); !slices.Equal(got, tt.want) {
			t.Errorf("splitLines(%q) = %q, want %q", tt.chunk, got, tt.want)
		}
	}
}

func TestListener_ServesClient(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	f := startListener(t, port)
	waitFor(t, "listener healthy", func() bool { return f.state.Snapshot().Healthy })

	if !hasEntry(f.ring.Snapshot(), logsink.Success, fmt.Sprintf("Server listening on port %d", port)) {
		t.Error("missing listening entry")
	}

	conn := dial(t, port)
	if _, err := conn.Write([]byte("enable Bloom\r\n")); err != nil {
		t.Fatal(err)
	}
	if got := readAcks(t, conn, 1); got != "OK\n" {
		t.Fatalf("ack = %q", got)
	}

	snap := f.state.Snapshot()
	if snap.CommandsReceived != 1 {
		t.Errorf("CommandsReceived = %d, want 1", snap.CommandsReceived)
	}
	if !snap.ClientConnected || snap.ClientAddress != "127.0.0.1" {
		t.Errorf("client = %v %q", snap.ClientConnected, snap.ClientAddress)
	}
	if !f.registry.GetState("Bloom") {
		t.Error("Bloom not enabled")
	}
	entries := f.ring.Snapshot()
	if !hasEntry(entries, logsink.Info, "Received: enable Bloom") || !hasEntry(entries, logsink.Success, "Set Bloom to ON") {
		t.Errorf("entries = %+v", entries)
	}
	if !hasPrefix(entries, logsink.Info, "Client connected from ") {
		t.Error("missing connect entry")
	}
}

func TestListener_AcksEveryLine(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	f := startListener(t, port)
	waitFor(t, "listener healthy", func() bool { return f.state.Snapshot().Healthy })

	conn := dial(t, port)
	if _, err := conn.Write([]byte("toggle Bloom\ntoggle blur\n")); err != nil {
		t.Fatal(err)
	}
	if got := readAcks(t, conn, 2); got != "OK\nOK\n" {
		t.Fatalf("acks = %q", got)
	}
	if !f.registry.GetState("Bloom") || !f.registry.GetState("MotionBlur") {
		t.Error("both toggles should have applied")
	}
	if got := f.state.Snapshot().CommandsReceived; got != 2 {
		t.Errorf("CommandsReceived = %d, want 2", got)
	}
}

func TestListener_ClientDisconnectKeepsListening(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	f := startListener(t, port)
	waitFor(t, "listener healthy", func() bool { return f.state.Snapshot().Healthy })

	first := dial(t, port)
	waitFor(t, "client connected", func() bool { return f.state.Snapshot().ClientConnected })
	_ = first.Close()
	waitFor(t, "client gone", func() bool { return !f.state.Snapshot().ClientConnected })

	second := dial(t, port)
	if _, err := second.Write([]byte("off bloom\n")); err != nil {
		t.Fatal(err)
	}
	if got := readAcks(t, second, 1); got != "OK\n" {
		t.Fatalf("ack = %q", got)
	}
	if countEntries(f.ring.Snapshot(), "Client disconnected") < 1 {
		t.Error("missing disconnect entry")
	}
}

func TestListener_BindFailure(t *testing.T) {
	t.Parallel()

	occupied, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()
	port := types.ListenPort(occupied.Addr().(*net.TCPAddr).Port)

	f := startListener(t, port)
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after bind failure")
	}

	snap := f.state.Snapshot()
	if snap.Running || snap.Healthy {
		t.Errorf("after bind failure: running=%v healthy=%v", snap.Running, snap.Healthy)
	}
	if !hasEntry(f.ring.Snapshot(), logsink.Error, fmt.Sprintf("Bind failed on port %d", port)) {
		t.Error("missing bind failure entry")
	}
	if f.listener.LastError() == nil {
		t.Error("incarnation should record the bind error")
	}
}

func TestListener_ForceCloseWithClient(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	f := startListener(t, port)
	waitFor(t, "listener healthy", func() bool { return f.state.Snapshot().Healthy })
	dial(t, port)
	waitFor(t, "client connected", func() bool { return f.state.Snapshot().ClientConnected })

	f.listener.ForceClose()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after ForceClose")
	}

	snap := f.state.Snapshot()
	if snap.Running || snap.ClientConnected {
		t.Errorf("after ForceClose: %+v", snap)
	}
	if !hasEntry(f.ring.Snapshot(), logsink.Info, "Server stopped") {
		t.Error("missing stopped entry")
	}
	f.listener.ForceClose()
}

func TestListener_ForceCloseBeforeRun(t *testing.T) {
	t.Parallel()

	state := NewState(nil)
	ring := logsink.NewRing(10)
	l := NewListener(state, command.NewDispatcher(nil, ring, state), ring, quietLogger(), ListenerConfig{})
	l.ForceClose()
	l.Run()

	if ring.Len() != 0 {
		t.Errorf("a closed incarnation must not log: %+v", ring.Snapshot())
	}
}
