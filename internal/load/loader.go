// Package load writes the transformed batch to the migration target. The
// bulk path writes the whole batch in one operation; if that operation
// fails, a per-record fallback path takes over inside a single transaction.
// Record-level problems are reported as data in the LoadOutcome, never as
// errors — an error from this package means the pipeline itself broke.
package load

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/db"
	"github.com/sells-group/migrate-cli/internal/model"
)

// Mode selects the bulk write strategy.
type Mode string

const (
	// ModeCopy streams the batch via the COPY protocol. Fastest, but a
	// re-run against existing ids fails the bulk path.
	ModeCopy Mode = "copy"
	// ModeUpsert writes via temp table + INSERT ... ON CONFLICT, making
	// re-runs idempotent on record id.
	ModeUpsert Mode = "upsert"
)

// targetColumns is the target table's column order for bulk writes.
var targetColumns = []string{
	"id", "column1", "column2", "column3_transformed",
	"migrated_at", "column1_upper", "category",
}

// Loader writes accepted batches into the target tables.
type Loader struct {
	pool        db.Pool
	table       string
	detailTable string
	mode        Mode
}

// New creates a Loader. An empty mode defaults to ModeCopy.
func New(pool db.Pool, table, detailTable string, mode Mode) *Loader {
	if mode == "" {
		mode = ModeCopy
	}
	return &Loader{pool: pool, table: table, detailTable: detailTable, mode: mode}
}

// Load attempts the bulk path once; on bulk failure it switches to the
// per-record fallback path, also attempted once per record. The returned
// outcome always accounts for every record when Success is true. Failure of
// the fallback transaction itself (destination unreachable, say) comes back
// as Success == false, still as a value rather than an error, so the caller
// can inspect partial progress.
func (l *Loader) Load(ctx context.Context, batch model.Batch) (*model.LoadOutcome, error) {
	log := zap.L().With(zap.String("component", "load"))

	if len(batch) == 0 {
		log.Warn("load: empty batch, nothing to write")
		return &model.LoadOutcome{Success: true}, nil
	}

	bulkErr := l.bulk(ctx, batch)
	if bulkErr == nil {
		log.Info("load: bulk path succeeded",
			zap.Int("records", len(batch)),
			zap.String("mode", string(l.mode)),
		)
		return &model.LoadOutcome{
			Success:          true,
			RecordsAttempted: len(batch),
			RecordsSucceeded: len(batch),
		}, nil
	}

	// One attempt only; no bulk retries at this layer.
	log.Warn("load: bulk path failed, entering fallback", zap.Error(bulkErr))
	return l.fallback(ctx, batch), nil
}

// bulk writes the entire batch as a single operation.
func (l *Loader) bulk(ctx context.Context, batch model.Batch) error {
	rows := make([][]any, 0, len(batch))
	for _, rec := range batch {
		row := make([]any, len(targetColumns))
		for i, col := range targetColumns {
			row[i] = rec[col]
		}
		rows = append(rows, row)
	}

	var err error
	if l.mode == ModeUpsert {
		_, err = db.BulkUpsert(ctx, l.pool, db.UpsertConfig{
			Table:        l.table,
			Columns:      targetColumns,
			ConflictKeys: []string{"id"},
		}, rows)
	} else {
		_, err = db.CopyFrom(ctx, l.pool, l.table, targetColumns, rows)
	}
	return err
}

// fallback re-checks each record's structural requirements and writes the
// sound ones individually, after clearing previously loaded dependent rows,
// all inside one transaction. A statement failure aborts a PostgreSQL
// transaction, so any write error here is a destination-level failure: the
// transaction rolls back and the outcome reports Success == false.
func (l *Loader) fallback(ctx context.Context, batch model.Batch) *model.LoadOutcome {
	log := zap.L().With(zap.String("component", "load"))
	outcome := &model.LoadOutcome{RecordsAttempted: len(batch)}

	writable := make([]indexed, 0, len(batch))
	for i, rec := range batch {
		if reason := structuralCheck(rec); reason != "" {
			outcome.RecordsFailed++
			outcome.FailureDetails = append(outcome.FailureDetails, model.FailureDetail{
				Index:  i,
				Reason: reason,
			})
			continue
		}
		writable = append(writable, indexed{idx: i, rec: rec})
	}

	err := l.writeTx(ctx, writable)
	if err != nil {
		// Destination-level failure: per-record counts are not claimed.
		log.Error("load: fallback transaction failed", zap.Error(err))
		outcome.Success = false
		outcome.RecordsSucceeded = 0
		outcome.RecordsFailed = 0
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.RecordsSucceeded = len(writable)
	log.Info("load: fallback path complete",
		zap.Int("succeeded", outcome.RecordsSucceeded),
		zap.Int("failed", outcome.RecordsFailed),
	)
	return outcome
}

// indexed pairs a record with its index in the accepted batch.
type indexed struct {
	idx int
	rec model.Record
}

// writeTx clears dependent rows and inserts each record, committing on
// success and rolling back on any failure, including panics on the way out.
func (l *Loader) writeTx(ctx context.Context, writable []indexed) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "load: begin fallback tx")
	}
	defer tx.Rollback(ctx)

	// Clear dependent data from any earlier partial load so the fallback
	// never leaves duplicate or half-written detail rows.
	truncateSQL := fmt.Sprintf("TRUNCATE TABLE %s", pgx.Identifier{l.detailTable}.Sanitize())
	if _, err := tx.Exec(ctx, truncateSQL); err != nil {
		return eris.Wrapf(err, "load: truncate %s", l.detailTable)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (id, column1, column2, column3_transformed, migrated_at, column1_upper, category) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		pgx.Identifier{l.table}.Sanitize(),
	)
	detailSQL := fmt.Sprintf(
		"INSERT INTO %s (target_id, detail_data) VALUES ($1, $2)",
		pgx.Identifier{l.detailTable}.Sanitize(),
	)

	for _, it := range writable {
		rec := it.rec
		if _, err := tx.Exec(ctx, insertSQL,
			rec["id"], rec["column1"], rec["column2"], rec["column3_transformed"],
			rec["migrated_at"], rec["column1_upper"], rec["category"],
		); err != nil {
			return eris.Wrapf(err, "load: insert record %d", it.idx)
		}

		if category, ok := rec.String("category"); ok {
			id, _ := rec.Int("id")
			if _, err := tx.Exec(ctx, detailSQL, id, "Category: "+category); err != nil {
				return eris.Wrapf(err, "load: insert detail for record %d", it.idx)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "load: commit fallback tx")
	}
	return nil
}

// structuralCheck verifies the minimal shape a record needs before an
// individual write: identity and the primary text field present and
// correctly typed. This is narrower than business validation — these
// records already passed the classifier.
func structuralCheck(rec model.Record) string {
	if _, ok := rec.Int("id"); !ok {
		return "missing or invalid id field"
	}
	if c1, ok := rec.String("column1"); !ok || c1 == "" {
		return "missing or invalid column1 field"
	}
	return ""
}
