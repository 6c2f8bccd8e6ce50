// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fxbridge/fxbridge/internal/effects"
)

func newTargetsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the configured techniques and their initial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			registry, err := effects.NewRegistry(cfg.Targets()...)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(app.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(registry.Targets())
			}

			fmt.Fprint(app.stdout, effects.Describe(registry))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
