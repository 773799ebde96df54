package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bds-unify",
	Short: "Unify BDS boycott datasets into one canonical company list",
	Long:  "Loads the scraped BDS source exports, reconciles duplicate companies across sources, validates and persists the unified records, and serves them over a read-only API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
