package load

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/model"
)

var loadClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func targetRecord(id int64, name string) model.Record {
	return model.Record{
		"id":                  id,
		"column1":             name,
		"column2":             "N/A",
		"column3_transformed": float64(id * 10),
		"migrated_at":         loadClock,
		"column1_upper":       name,
		"category":            "low",
	}
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestLoadEmptyBatch(t *testing.T) {
	mock := newMock(t)

	outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
		Load(context.Background(), model.Batch{})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Zero(t, outcome.RecordsAttempted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Bulk COPY succeeds: every record is reported as written.
func TestLoadBulkSuccess(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"target_table"}, targetColumns).WillReturnResult(3)

	batch := model.Batch{targetRecord(1, "a"), targetRecord(2, "b"), targetRecord(3, "c")}
	outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
		Load(context.Background(), batch)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.RecordsAttempted)
	assert.Equal(t, 3, outcome.RecordsSucceeded)
	assert.Zero(t, outcome.RecordsFailed)
	assert.Empty(t, outcome.FailureDetails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Bulk upsert mode drives the temp-table + ON CONFLICT path.
func TestLoadBulkUpsertMode(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_target_table"}, targetColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "target_table"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	batch := model.Batch{targetRecord(1, "a"), targetRecord(2, "b")}
	outcome, err := New(mock, "target_table", "target_detail", ModeUpsert).
		Load(context.Background(), batch)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.RecordsSucceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Bulk fails, fallback finds 2 of 3 records structurally valid: the invalid
// one lands in failure details and the write happens inside one transaction
// that truncates dependent rows first.
func TestLoadFallbackPartialSuccess(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"target_table"}, targetColumns).
		WillReturnError(fmt.Errorf("duplicate key value"))

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE TABLE "target_detail"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	for _, id := range []int64{1, 2} {
		mock.ExpectExec(`INSERT INTO "target_table"`).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO "target_detail"`).
			WithArgs(id, "Category: low").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	broken := targetRecord(3, "c")
	delete(broken, "column1") // structurally invalid

	batch := model.Batch{targetRecord(1, "a"), targetRecord(2, "b"), broken}
	outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
		Load(context.Background(), batch)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.RecordsAttempted)
	assert.Equal(t, 2, outcome.RecordsSucceeded)
	assert.Equal(t, 1, outcome.RecordsFailed)
	require.Len(t, outcome.FailureDetails, 1)
	assert.Equal(t, 2, outcome.FailureDetails[0].Index)
	assert.Contains(t, outcome.FailureDetails[0].Reason, "column1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFallbackStructuralChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(model.Record)
		reason string
	}{
		{"id_missing", func(r model.Record) { delete(r, "id") }, "id"},
		{"id_wrong_type", func(r model.Record) { r["id"] = "seven" }, "id"},
		{"column1_missing", func(r model.Record) { delete(r, "column1") }, "column1"},
		{"column1_wrong_type", func(r model.Record) { r["column1"] = 99 }, "column1"},
		{"column1_empty", func(r model.Record) { r["column1"] = "" }, "column1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectCopyFrom(pgx.Identifier{"target_table"}, targetColumns).
				WillReturnError(fmt.Errorf("bulk down"))
			mock.ExpectBegin()
			mock.ExpectExec(`TRUNCATE TABLE "target_detail"`).
				WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
			mock.ExpectCommit()

			rec := targetRecord(7, "x")
			tt.mutate(rec)

			outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
				Load(context.Background(), model.Batch{rec})
			require.NoError(t, err)

			assert.True(t, outcome.Success)
			assert.Equal(t, 1, outcome.RecordsFailed)
			require.Len(t, outcome.FailureDetails, 1)
			assert.Contains(t, outcome.FailureDetails[0].Reason, tt.reason)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Fallback transaction cannot even begin: the outcome reports failure as a
// value, and no per-record counts are claimed.
func TestLoadFallbackTransactionFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"target_table"}, targetColumns).
		WillReturnError(fmt.Errorf("bulk down"))
	mock.ExpectBegin().WillReturnError(fmt.Errorf("destination unreachable"))

	batch := model.Batch{targetRecord(1, "a"), targetRecord(2, "b")}
	outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
		Load(context.Background(), batch)
	require.NoError(t, err, "transaction failure is returned as data, not raised")

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "destination unreachable")
	assert.Zero(t, outcome.RecordsSucceeded)
	assert.Zero(t, outcome.RecordsFailed)
	assert.Equal(t, 2, outcome.RecordsAttempted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A statement failure mid-transaction rolls everything back.
func TestLoadFallbackInsertFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"target_table"}, targetColumns).
		WillReturnError(fmt.Errorf("bulk down"))
	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE TABLE "target_detail"`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectExec(`INSERT INTO "target_table"`).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	outcome, err := New(mock, "target_table", "target_detail", ModeCopy).
		Load(context.Background(), model.Batch{targetRecord(1, "a")})
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
