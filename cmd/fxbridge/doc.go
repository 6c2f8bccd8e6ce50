// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for fxbridge.
//
// The root command wires configuration, logging and the command server
// together. `serve` hosts the server (optionally with the dashboard, the
// status feed and the SSH console), `send` is a small client for the line
// protocol, and `config` and `targets` inspect the configuration.
package cmd
