// Package classify partitions a batch into accepted and rejected records in
// one linear pass: each record is cleaned, then validated, and either joins
// the accepted batch (in original order) or is recorded with its reasons.
// There is no backtracking — a record rejected by cleaning never reaches the
// validator, and an accepted record is never re-cleaned.
package classify

import (
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/clean"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/validate"
)

// Classifier runs the cleaner and validator across batches.
type Classifier struct {
	rules     *clean.Table
	validator *validate.Validator
}

// New creates a classifier over the given rule table and validator.
func New(rules *clean.Table, validator *validate.Validator) *Classifier {
	return &Classifier{rules: rules, validator: validator}
}

// Classify cleans and validates every record. Accepted records are returned
// in their original relative order; rejected indices are strictly increasing
// and refer to positions in the input batch.
func (c *Classifier) Classify(batch model.Batch) (model.Batch, model.BatchOutcome) {
	log := zap.L().With(zap.String("component", "classify"))

	accepted := make(model.Batch, 0, len(batch))
	outcome := model.BatchOutcome{
		RejectedReasons: make(map[int][]string),
	}

	for i, rec := range batch {
		cleaned, reasons := c.rules.Clean(rec)
		if len(reasons) > 0 {
			outcome.RejectedIndices = append(outcome.RejectedIndices, i)
			outcome.RejectedReasons[i] = reasons
			continue
		}

		if vo := c.validator.Validate(cleaned); !vo.Valid {
			outcome.RejectedIndices = append(outcome.RejectedIndices, i)
			outcome.RejectedReasons[i] = vo.Errors
			continue
		}

		accepted = append(accepted, cleaned)
	}

	outcome.AcceptedCount = len(accepted)
	outcome.RejectedCount = len(batch) - len(accepted)

	if outcome.RejectedCount > 0 {
		log.Warn("classify: rejected records",
			zap.Int("rejected", outcome.RejectedCount),
			zap.Int("accepted", outcome.AcceptedCount),
			zap.Ints("indices", outcome.RejectedIndices),
		)
	} else {
		log.Info("classify: batch clean",
			zap.Int("accepted", outcome.AcceptedCount),
		)
	}

	return accepted, outcome
}
