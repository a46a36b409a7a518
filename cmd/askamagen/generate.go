package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askamago/askama/config"
)

func newGenerateCmd(logger *zap.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [dirs...]",
		Short: "Generate <Type>_askama.gen.go for every annotated context type found in the given package directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			start := time.Now()
			files, err := generateDirs(cfg, dirs)
			if err != nil {
				logger.Error("generate failed", zap.Error(err))
				return err
			}

			written := 0
			for _, f := range files {
				if f.Diagnostic {
					fmt.Fprintln(cmd.OutOrStdout(), f.Source)
					continue
				}
				if err := os.WriteFile(f.Path, []byte(f.Source), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", f.Path, err)
				}
				written++
				logger.Info("generated template",
					zap.String("type", f.Type),
					zap.String("path", f.Path),
				)
			}
			logger.Info("generate complete",
				zap.Int("types", len(files)),
				zap.Int("files_written", written),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		},
	}
}
