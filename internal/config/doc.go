// SPDX-License-Identifier: MPL-2.0

// Package config loads fxbridge configuration using Viper with CUE as the
// file format.
//
// The file is config.cue in the platform config directory
// ($XDG_CONFIG_HOME/fxbridge on Linux, ~/Library/Application Support/fxbridge
// on macOS, %AppData%\fxbridge on Windows) or an explicit --config path. It is
// validated against the embedded #Config schema and merged over defaults;
// FXBRIDGE_* environment variables override both (FXBRIDGE_SERVER_PORT).
package config
