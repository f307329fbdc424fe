// Package main provides the mapgen CLI:
//
//	mapgen compile <manifest.yaml> <recipe.yaml>
//	mapgen plan <manifest.yaml> <run-request.(json|yaml)>
//	mapgen fingerprint <file...>
//	mapgen describe <manifest.yaml>
//	mapgen watch <manifest.yaml> <recipe.yaml>
//	mapgen schema run-request|plan
//	mapgen trace verify <trace.jsonl>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "mapgen",
	Short:         "Compile map generation recipes into execution plans",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mapgen %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetErr(os.Stderr)
	rootCmd.AddCommand(versionCmd)
}
