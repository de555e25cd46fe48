package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/classify"
	"github.com/sells-group/migrate-cli/internal/clean"
	"github.com/sells-group/migrate-cli/internal/load"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/pipeline"
	"github.com/sells-group/migrate-cli/internal/runlog"
	"github.com/sells-group/migrate-cli/internal/source"
	"github.com/sells-group/migrate-cli/internal/transform"
	"github.com/sells-group/migrate-cli/internal/validate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the migration pipeline",
	Long:  "Extracts records from the configured source, cleans and validates them, derives target columns, and loads the accepted records into the destination.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		pool, err := targetPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store, err := runlog.New(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		run, err := store.CreateRun(ctx, cfg.Source.Driver+":"+cfg.Source.Path)
		if err != nil {
			return err
		}
		zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("source", run.Source))

		rules, err := clean.DefaultTable()
		if err != nil {
			return err
		}
		transformer := transform.New(classify.New(rules, validate.New()))
		loader := load.New(pool, cfg.Target.Table, cfg.Target.DetailTable, load.Mode(cfg.Target.Mode))

		reg := pipeline.NewRegistry()
		reg.Discover([]pipeline.Unit{
			pipeline.Extract(src.Fetch),
			pipeline.Transform(transformer.Apply),
			pipeline.Load(loader.Load),
		})

		exec := pipeline.NewExecutor(reg, runlog.NewRecorder(ctx, store, run.ID))
		loadOutcome, runErr := exec.Run(ctx)

		if err := store.FinishRun(ctx, run.ID, loadOutcome, runErr); err != nil {
			zap.L().Warn("failed to record run result", zap.Error(err))
		}

		if runErr != nil {
			return eris.Wrap(runErr, "run")
		}

		formatRunSummary(os.Stdout, run.ID, transformer.Outcome(), loadOutcome)
		if loadOutcome != nil && !loadOutcome.Success {
			return eris.New("run: load did not succeed, see summary above")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// openSource builds the configured extract source.
func openSource() (source.Source, error) {
	switch cfg.Source.Driver {
	case "sqlite":
		return source.NewSQLite(cfg.Source.Path, cfg.Source.Table, cfg.Source.DetailTable)
	case "csv":
		return source.NewCSV(cfg.Source.Path), nil
	default:
		return nil, eris.Errorf("run: unsupported source driver %q", cfg.Source.Driver)
	}
}

// targetPool creates a pgxpool.Pool for the destination database.
func targetPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Target.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "run: parse target database url")
	}
	if cfg.Target.MaxPoolConns > 0 {
		poolCfg.MaxConns = int32(cfg.Target.MaxPoolConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "run: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "run: ping target database")
	}

	return pool, nil
}

// formatRunSummary writes the per-run counts to w.
func formatRunSummary(out io.Writer, runID string, batch model.BatchOutcome, loadOutcome *model.LoadOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	_, _ = fmt.Fprintf(w, "Accepted:\t%d\n", batch.AcceptedCount)
	_, _ = fmt.Fprintf(w, "Rejected:\t%d\n", batch.RejectedCount)
	for _, idx := range batch.RejectedIndices {
		for _, reason := range batch.RejectedReasons[idx] {
			_, _ = fmt.Fprintf(w, "  record %d:\t%s\n", idx, reason)
		}
	}
	if loadOutcome != nil {
		status := "failed"
		if loadOutcome.Success {
			status = "ok"
		}
		_, _ = fmt.Fprintf(w, "Load:\t%s\n", status)
		_, _ = fmt.Fprintf(w, "  attempted:\t%d\n", loadOutcome.RecordsAttempted)
		_, _ = fmt.Fprintf(w, "  succeeded:\t%d\n", loadOutcome.RecordsSucceeded)
		_, _ = fmt.Fprintf(w, "  failed:\t%d\n", loadOutcome.RecordsFailed)
		for _, detail := range loadOutcome.FailureDetails {
			_, _ = fmt.Fprintf(w, "  record %d:\t%s\n", detail.Index, detail.Reason)
		}
		if loadOutcome.Error != "" {
			_, _ = fmt.Fprintf(w, "  error:\t%s\n", loadOutcome.Error)
		}
	}
	_ = w.Flush()
}
