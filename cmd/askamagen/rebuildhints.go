package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askamago/askama"
	"github.com/askamago/askama/config"
)

// newRebuildHintsCmd prints every template file under the configured roots,
// one per line, for a host go:generate directive or Makefile rule to depend
// on (spec §6's rebuild-hint enumeration).
func newRebuildHintsCmd(logger *zap.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-hints",
		Short: "List every template file under the configured roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			hints, err := askama.RebuildHints(cfg.Dirs)
			if err != nil {
				return err
			}
			for _, h := range hints {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			logger.Debug("rebuild-hints", zap.Int("count", len(hints)))
			return nil
		},
	}
}
