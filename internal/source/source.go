// Package source provides Extract-phase collaborators: each Source produces
// the batch of records the pipeline consumes, from a database table or a
// flat file.
package source

import (
	"context"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Source fetches the full source batch. Implementations own their
// connection lifetime; Close releases it.
type Source interface {
	Fetch(ctx context.Context) (model.Batch, error)
	Close() error
}
