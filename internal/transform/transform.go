// Package transform implements the pipeline's Transform phase: the batch is
// classified (cleaned and validated), then derived target columns are
// computed for every accepted record.
package transform

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/classify"
	"github.com/sells-group/migrate-cli/internal/model"
)

// Category buckets for the numeric column.
const (
	CategoryLow     = "low"
	CategoryMedium  = "medium"
	CategoryHigh    = "high"
	CategoryUnknown = "unknown"
)

// TargetColumns is the column set a transformed record carries, in target
// table order.
var TargetColumns = []string{
	"id", "column1", "column2", "column3_transformed",
	"migrated_at", "column1_upper", "category",
}

// Transformer is the Transform phase unit.
type Transformer struct {
	classifier *classify.Classifier

	// Now stamps migrated_at. Tests substitute a fixed clock.
	Now func() time.Time

	outcome model.BatchOutcome
}

// New creates a Transformer using the system clock.
func New(c *classify.Classifier) *Transformer {
	return &Transformer{classifier: c, Now: time.Now}
}

// Outcome returns the batch outcome of the most recent Apply call.
func (t *Transformer) Outcome() model.BatchOutcome { return t.outcome }

// Apply classifies the batch and computes derived columns for each accepted
// record. Rejected records are dropped here; their indices and reasons are
// retained in Outcome.
func (t *Transformer) Apply(_ context.Context, batch model.Batch) (model.Batch, error) {
	accepted, outcome := t.classifier.Classify(batch)
	t.outcome = outcome

	migratedAt := t.Now().UTC()
	out := make(model.Batch, 0, len(accepted))
	for _, rec := range accepted {
		out = append(out, t.derive(rec, migratedAt))
	}

	zap.L().Info("transform: batch transformed",
		zap.Int("in", len(batch)),
		zap.Int("out", len(out)),
		zap.Int("rejected", outcome.RejectedCount),
	)
	return out, nil
}

// derive builds the target-shaped record from a cleaned source record.
func (t *Transformer) derive(rec model.Record, migratedAt time.Time) model.Record {
	out := model.Record{
		"id":          rec["id"],
		"column2":     rec["column2"],
		"migrated_at": migratedAt,
	}

	if c1, ok := rec.String("column1"); ok {
		out["column1"] = c1
		out["column1_upper"] = strings.ToUpper(c1)
	}

	if c3, ok := rec.Float("column3"); ok {
		out["column3_transformed"] = c3 * 2
		out["category"] = categorize(c3)
	} else {
		out["category"] = CategoryUnknown
	}

	if detail, ok := rec.String("detail_data"); ok {
		out["detail_data"] = detail
	}

	return out
}

// categorize buckets the pre-transform numeric value.
func categorize(v float64) string {
	switch {
	case v < 10:
		return CategoryLow
	case v < 50:
		return CategoryMedium
	default:
		return CategoryHigh
	}
}
