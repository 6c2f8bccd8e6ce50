// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fxbridge/fxbridge/internal/issue"
	"github.com/fxbridge/fxbridge/pkg/types"
)

const (
	defaultSendTimeout = 3 * time.Second
	ackLine            = "OK"
)

// errNoAck is returned when the server accepted the connection but did not
// acknowledge a line in time, which is what a busy single-client server
// looks like from the outside.
var errNoAck = errors.New("no acknowledgement from command server")

type sendFlagValues struct {
	addr    string
	timeout time.Duration
}

func newSendCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &sendFlagValues{}

	cmd := &cobra.Command{
		Use:   "send <line>...",
		Short: "Send command lines to a running server",
		Long: `Send command lines to a running server.

Each argument is sent as one line and must be acknowledged before the next
one is written. The address defaults to 127.0.0.1 on the configured port.`,
		Example: `  fxbridge send "enable Bloom"
  fxbridge send "disable MotionBlur" "toggle Bloom" --addr 10.0.0.5:7777`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := flags.addr
			if addr == "" {
				cfg, _, err := app.loadConfig(cmd.Context(), rootFlags)
				if err != nil {
					return err
				}
				addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(int(cfg.Server.Port)))
			}
			return sendLines(cmd.Context(), app, addr, flags.timeout, args)
		},
	}

	cmd.Flags().StringVarP(&flags.addr, "addr", "a", "", "server address host:port")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", defaultSendTimeout, "dial and acknowledgement timeout")

	return cmd
}

func sendLines(ctx context.Context, app *App, addr string, timeout time.Duration, lines []string) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return unreachable(app, addr, err)
	}
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReader(conn)
	for _, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return &ExitError{Code: types.ExitFailure, Err: fmt.Errorf("line %q must not contain a line break", line)}
		}

		_ = conn.SetDeadline(time.Now().Add(timeout))
		if _, err := io.WriteString(conn, line+"\n"); err != nil {
			return unreachable(app, addr, err)
		}
		reply, err := reader.ReadString('\n')
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				err = errNoAck
			}
			return unreachable(app, addr, err)
		}
		if strings.TrimSpace(reply) != ackLine {
			return &ExitError{Code: types.ExitFailure, Err: fmt.Errorf("unexpected reply %q to %q", strings.TrimSpace(reply), line)}
		}

		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), line)
	}
	return nil
}

func unreachable(app *App, addr string, cause error) error {
	err := issue.NewErrorContext().
		WithOperation("send to command server").
		WithResource(addr).
		WithIssue(issue.ServerUnreachableId).
		WithSuggestion("Check that 'fxbridge serve' is running and listening").
		WithSuggestion("Only one client is served at a time; disconnect other clients").
		Wrap(cause).
		BuildError()
	app.renderIssue(err, issue.ServerUnreachableId)
	return &ExitError{Code: types.ExitUnreachable, Err: err}
}
