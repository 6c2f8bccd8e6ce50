// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/cmdserver"
	"github.com/fxbridge/fxbridge/internal/config"
)

// Applier receives the runtime-mutable server settings after a reload.
type Applier interface {
	Apply(s cmdserver.Settings) error
}

// Reloader returns an OnChange callback that reloads the configuration and
// pushes the server settings to target. When logger is non-nil its level is
// updated from the reloaded log section. Techniques are not re-seeded: their
// live state belongs to the running effect capability.
func Reloader(provider config.Provider, opts config.LoadOptions, target Applier, logger *log.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cfg, path, err := provider.Load(ctx, opts)
		if err != nil {
			return err
		}
		if err := target.Apply(cfg.ServerSettings()); err != nil {
			return fmt.Errorf("apply reloaded settings: %w", err)
		}
		if logger != nil {
			if lvl, err := log.ParseLevel(string(cfg.Log.Level)); err == nil {
				logger.SetLevel(lvl)
			}
			logger.Info("configuration reloaded", "path", path, "port", cfg.Server.Port)
		}
		return nil
	}
}
