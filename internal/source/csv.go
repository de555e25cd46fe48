package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/model"
)

// CSVSource extracts records from a CSV file with a header row. Known
// columns are coerced to their schema types: id to integer, column3 to
// float, created_at to RFC3339 timestamp text. Empty cells are treated as
// absent. Unknown columns pass through as strings.
type CSVSource struct {
	path string
}

// NewCSV creates a CSV source for the file at path.
func NewCSV(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Close is a no-op; the file is opened and closed per Fetch.
func (s *CSVSource) Close() error { return nil }

// Fetch reads the whole file into a batch, preserving row order.
func (s *CSVSource) Fetch(ctx context.Context) (model.Batch, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open csv %s", s.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "source: read csv header %s", s.path)
	}

	var batch model.Batch
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: read csv row %d", len(batch)+2)
		}

		rec := make(model.Record, len(header))
		for i, col := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			v, err := coerce(col, row[i])
			if err != nil {
				// Leave the raw string in place; validation will flag it.
				v = row[i]
			}
			rec[col] = v
		}
		batch = append(batch, rec)
	}

	zap.L().Info("source: batch extracted",
		zap.String("driver", "csv"),
		zap.String("path", s.path),
		zap.Int("records", len(batch)),
	)
	return batch, nil
}

// coerce converts a cell to the schema type for known columns.
func coerce(col, raw string) (any, error) {
	switch col {
	case "id":
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err
	case "column3":
		f, err := strconv.ParseFloat(raw, 64)
		return f, err
	case "created_at":
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return raw, nil
	}
}
