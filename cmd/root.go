package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/config"
)

var (
	cfg *config.Config

	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:          "casino-research",
	Short:        "Casino and promotional offer research",
	Long:         "Discovers casinos and promotional offers by state, reconciles them against the existing offer database, and reports missing casinos, better offers and new offers.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyLogFlags(cmd, &loaded.Log)
		cfg = loaded

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("config loaded", zap.String("command", cmd.CommandPath()))
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "override log.format (json or console)")
}

// applyLogFlags lets explicitly set flags win over file and env config.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	if cmd.Flags().Changed("log-level") {
		lc.Level = logLevelFlag
	}
	if cmd.Flags().Changed("log-format") {
		lc.Format = logFormatFlag
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
