package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askamago/askama/config"
)

// newCheckCmd builds the CI-facing dry run: generate every annotated context
// type in memory and fail if the result would differ from (or is missing
// relative to) the checked-in <Type>_askama.gen.go file, without writing
// anything.
func newCheckCmd(logger *zap.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dirs...]",
		Short: "Verify generated files are up to date without writing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			files, err := generateDirs(cfg, dirs)
			if err != nil {
				return err
			}

			var stale []string
			for _, f := range files {
				if f.Diagnostic {
					continue
				}
				existing, err := os.ReadFile(f.Path)
				if err != nil || string(existing) != f.Source {
					stale = append(stale, f.Path)
				}
			}

			if len(stale) > 0 {
				for _, path := range stale {
					fmt.Fprintln(cmd.ErrOrStderr(), "stale or missing:", path)
				}
				logger.Warn("check found stale generated files", zap.Int("count", len(stale)))
				return fmt.Errorf("%d generated file(s) are out of date; run `askamagen generate`", len(stale))
			}
			logger.Info("check passed", zap.Int("types", len(files)))
			return nil
		},
	}
}
