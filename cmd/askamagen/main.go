// Command askamagen is the build-time driver of spec §2: it scans a Go
// package's source for `//askama:template` annotations and runs the
// config -> parse -> resolve -> codegen pipeline for each annotated
// context type, writing a sibling <Type>_askama.gen.go file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "askamagen: failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "askamagen",
		Short:         "Build-time template code generator for askama-go",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "askama.toml", "path to askama.toml")

	root.AddCommand(newGenerateCmd(logger, &configPath))
	root.AddCommand(newCheckCmd(logger, &configPath))
	root.AddCommand(newRebuildHintsCmd(logger, &configPath))
	return root
}
