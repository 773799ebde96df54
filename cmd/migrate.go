package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		driver := store.Options{Driver: cfg.Store.Driver, DatabaseURL: cfg.Store.DatabaseURL}.ResolveDriver()
		zap.L().Info("migrations applied", zap.String("driver", driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
