package runlog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/pipeline"
)

// Recorder implements pipeline.Observer by writing phase rows for a single
// run. Persistence failures are logged and swallowed so the pipeline never
// fails because its history could not be written.
type Recorder struct {
	ctx     context.Context
	store   *Store
	runID   string
	phaseID string
	logger  *zap.Logger
}

// NewRecorder returns a Recorder that attaches phases to runID.
func NewRecorder(ctx context.Context, store *Store, runID string) *Recorder {
	return &Recorder{
		ctx:    ctx,
		store:  store,
		runID:  runID,
		logger: zap.L().With(zap.String("component", "runlog"), zap.String("run_id", runID)),
	}
}

func (r *Recorder) PhaseStarted(p pipeline.Phase) {
	id, err := r.store.StartPhase(r.ctx, r.runID, p.String())
	if err != nil {
		r.logger.Warn("failed to record phase start", zap.String("phase", p.String()), zap.Error(err))
		return
	}
	r.phaseID = id
}

func (r *Recorder) PhaseCompleted(p pipeline.Phase, duration time.Duration, phaseErr error) {
	if r.phaseID == "" {
		return
	}
	if err := r.store.CompletePhase(r.ctx, r.phaseID, duration, phaseErr); err != nil {
		r.logger.Warn("failed to record phase completion", zap.String("phase", p.String()), zap.Error(err))
	}
	r.phaseID = ""
}
