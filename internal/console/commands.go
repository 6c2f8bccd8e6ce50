// SPDX-License-Identifier: MPL-2.0

package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/effects"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const usage = `  status [--json]        show server status
  start [port]           start the command server
  stop                   stop the command server
  restart                restart the running command server
  logs [n]               print the last n log entries (default all)
  targets                list techniques and their state
  autorestart on|off     enable or disable automatic restarts
  reset-counter          zero the automatic restart counter
  delay <seconds>        set the restart cooldown (1-60)
  attempts <n>           set the automatic restart cap (1-50)
  help                   show this help
`

// Execute runs one console command against surface, writing its answer to
// out and failures to errOut.
func Execute(surface Surface, args []string, out, errOut io.Writer) types.ExitCode {
	if len(args) == 0 {
		_, _ = io.WriteString(errOut, "no command given\n"+usage)
		return types.ExitFailure
	}

	name, rest := strings.ToLower(args[0]), args[1:]
	var err error
	switch name {
	case "help":
		_, _ = io.WriteString(out, "fxbridge console commands:\n"+usage)
	case "status":
		err = writeStatus(out, surface.Status(), len(rest) > 0 && rest[0] == "--json")
	case "start":
		err = start(surface, rest, out)
	case "stop":
		surface.Stop()
		_, _ = io.WriteString(out, "stopped\n")
	case "restart":
		if err = surface.Restart(); err == nil {
			_, _ = io.WriteString(out, "restarting\n")
		}
	case "logs":
		err = writeLogs(surface, rest, out)
	case "targets":
		for _, t := range surface.Targets() {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", t.Name, effects.OnOff(t.Enabled))
		}
	case "autorestart":
		err = autoRestart(surface, rest, out)
	case "reset-counter":
		surface.ResetRestartCounter()
		_, _ = io.WriteString(out, "restart counter reset\n")
	case "delay":
		var n int
		if n, err = intArg(rest, "delay <seconds>"); err == nil {
			if err = surface.SetRestartDelay(types.RestartDelay(n)); err == nil {
				_, _ = fmt.Fprintf(out, "restart delay set to %s\n", types.RestartDelay(n))
			}
		}
	case "attempts":
		var n int
		if n, err = intArg(rest, "attempts <n>"); err == nil {
			if err = surface.SetMaxRestartAttempts(types.MaxRestartAttempts(n)); err == nil {
				_, _ = fmt.Fprintf(out, "max restart attempts set to %d\n", n)
			}
		}
	default:
		_, _ = fmt.Fprintf(errOut, "unknown command %q\n%s", args[0], usage)
		return types.ExitFailure
	}

	if err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return types.ExitFailure
	}
	return types.ExitOK
}

func start(surface Surface, args []string, out io.Writer) error {
	port := surface.Status().Port
	if len(args) > 0 {
		p, err := types.ParseListenPort(args[0])
		if err != nil {
			return err
		}
		port = p
	}
	if err := surface.Start(port); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "starting on port %d\n", port)
	return nil
}

func autoRestart(surface Surface, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: autorestart on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "enable":
		surface.SetAutoRestart(true)
	case "off", "disable":
		surface.SetAutoRestart(false)
	default:
		return fmt.Errorf("usage: autorestart on|off")
	}
	_, _ = fmt.Fprintf(out, "auto-restart %s\n", effects.OnOff(surface.Status().AutoRestart))
	return nil
}

func writeStatus(out io.Writer, st cmdserver.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	server := "Stopped"
	if st.Running {
		server = "Running"
		if st.Healthy {
			server += " (Healthy)"
		} else {
			server += " (Unhealthy)"
		}
	}
	client := "None"
	if st.ClientConnected {
		client = st.ClientAddress
	}
	_, err := fmt.Fprintf(out,
		"Server Status: %s\nPort: %d\nClient: %s\nCommands Received: %d\nRestart Count: %d/%d\nAuto-Restart: %s (delay %s)\n",
		server, st.Port, client, st.CommandsReceived, st.RestartCount, st.MaxRestartAttempts,
		effects.OnOff(st.AutoRestart), st.RestartDelay)
	return err
}

func writeLogs(surface Surface, args []string, out io.Writer) error {
	entries := surface.Logs()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("usage: logs [n]")
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(out, "%s %-7s %s\n", e.Timestamp.Format("[15:04:05]"), e.Severity, e.Message); err != nil {
			return err
		}
	}
	return nil
}

func intArg(args []string, use string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", use)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s", use)
	}
	return n, nil
}
