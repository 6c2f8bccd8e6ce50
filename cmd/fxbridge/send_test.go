// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/config"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/internal/testutil"
	"github.com/fxbridge/fxbridge/pkg/types"
)

// startServer runs a controller with MotionBlur and Bloom on a free port.
func startServer(t *testing.T) (*cmdserver.Controller, *effects.Registry, types.ListenPort) {
	t.Helper()

	registry, err := effects.NewRegistry(effects.Target{Name: "MotionBlur"}, effects.Target{Name: "Bloom"})
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	port := types.ListenPort(testutil.FreePort(t))
	settings := cmdserver.DefaultSettings()
	settings.Port = port

	ctl, err := cmdserver.New(settings, cmdserver.WithCapability(registry))
	if err != nil {
		t.Fatalf("cmdserver.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = ctl.Close() })

	if err := ctl.Start(port); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	testutil.WaitFor(t, "server listening", func() bool {
		for _, e := range ctl.Logs() {
			if strings.HasPrefix(e.Message, "Server listening on port") {
				return true
			}
		}
		return false
	})
	return ctl, registry, port
}

func loopback(port types.ListenPort) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port)))
}

func TestSendAppliesLines(t *testing.T) {
	t.Parallel()

	ctl, registry, port := startServer(t)

	stdout, _, err := runCLI(t, context.Background(), "send", "--addr", loopback(port), "enable Bloom", "toggle MotionBlur")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	for _, line := range []string{"enable Bloom", "toggle MotionBlur"} {
		if !strings.Contains(stdout, line) {
			t.Errorf("stdout missing %q:\n%s", line, stdout)
		}
	}
	if !registry.GetState("Bloom") || !registry.GetState("MotionBlur") {
		t.Errorf("targets = %+v, want both ON", registry.Targets())
	}
	if got := ctl.Status().CommandsReceived; got != 2 {
		t.Errorf("CommandsReceived = %d, want 2", got)
	}
}

func TestSendDefaultsToConfiguredPort(t *testing.T) {
	t.Parallel()

	_, registry, port := startServer(t)
	cfg := config.DefaultConfig()
	cfg.Server.Port = port
	path := writeConfig(t, cfg)

	if _, _, err := runCLI(t, context.Background(), "send", "--config", path, "enable Bloom"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !registry.GetState("Bloom") {
		t.Error("Bloom = OFF, want ON")
	}
}

func TestSendUnreachable(t *testing.T) {
	t.Parallel()

	port := types.ListenPort(testutil.FreePort(t))
	_, stderr, err := runCLI(t, context.Background(), "send", "--addr", loopback(port), "enable Bloom")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitUnreachable {
		t.Fatalf("err = %v, want ExitError with code %d", err, types.ExitUnreachable)
	}
	if strings.TrimSpace(stderr) == "" {
		t.Error("stderr is empty, want the rendered issue")
	}
}

// silentListener accepts connections and never replies, like a server that
// is busy with another client.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return ln.Addr().String()
}

func TestSendNoAcknowledgement(t *testing.T) {
	t.Parallel()

	addr := silentListener(t)
	_, _, err := runCLI(t, context.Background(), "send", "--addr", addr, "--timeout", "200ms", "enable Bloom")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitUnreachable {
		t.Fatalf("err = %v, want ExitError with code %d", err, types.ExitUnreachable)
	}
	if !errors.Is(err, errNoAck) {
		t.Errorf("err = %v, want errNoAck in chain", err)
	}
}

func TestSendRejectsEmbeddedLineBreak(t *testing.T) {
	t.Parallel()

	addr := silentListener(t)
	_, _, err := runCLI(t, context.Background(), "send", "--addr", addr, "enable Bloom\ndisable Bloom")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitFailure {
		t.Fatalf("err = %v, want ExitError with code %d", err, types.ExitFailure)
	}
}
