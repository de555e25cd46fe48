package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/db"
	"github.com/sells-group/migrate-cli/internal/runlog"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Apply destination schema migrations",
	Long:  "Applies all pending SQL migrations to the destination database in lexicographic order, and creates the local run history schema.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("initdb"); err != nil {
			return err
		}

		pool, err := targetPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "initdb")
		}

		store, err := runlog.New(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		zap.L().Info("all migrations applied successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
