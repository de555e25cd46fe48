package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/model"
)

// ErrNotRegistered indicates the registry is missing a unit for a phase the
// executor was about to run. It is a configuration error: nothing has been
// executed when it is returned.
var ErrNotRegistered = eris.New("pipeline: phase not registered")

// State is the executor's position in its lifecycle. Failed is terminal.
type State int

const (
	StateIdle State = iota
	StateRunningExtract
	StateRunningTransform
	StateRunningLoad
	StateCompleted
	StateFailed
)

// String returns the state's display name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningExtract:
		return "running_extract"
	case StateRunningTransform:
		return "running_transform"
	case StateRunningLoad:
		return "running_load"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// runningState maps a phase to the executor state that covers it.
func runningState(p Phase) State {
	switch p {
	case PhaseExtract:
		return StateRunningExtract
	case PhaseTransform:
		return StateRunningTransform
	default:
		return StateRunningLoad
	}
}

// Observer receives lifecycle callbacks as the executor moves through the
// phases. Callbacks run on the executor's goroutine; implementations should
// return quickly.
type Observer interface {
	PhaseStarted(p Phase)
	PhaseCompleted(p Phase, duration time.Duration, err error)
}

// Executor runs the registered phases in the fixed Extract, Transform, Load
// order. An executor is single-use: it tracks one run's state and a second
// Run call on a completed or failed executor returns an error.
type Executor struct {
	reg   *Registry
	obs   Observer
	state State
}

// NewExecutor creates an executor over the registry. obs may be nil.
func NewExecutor(reg *Registry, obs Observer) *Executor {
	return &Executor{reg: reg, obs: obs, state: StateIdle}
}

// State returns the executor's current state.
func (e *Executor) State() State { return e.state }

// Run executes Extract, Transform, and Load in order, passing each phase's
// return value to the next, and returns the Load phase's outcome.
//
// All three phases are checked for registration before anything executes; a
// missing phase fails the run with ErrNotRegistered naming the phase, with
// zero side effects. A phase's own error propagates to the caller unwrapped
// after the executor marks itself Failed — record-level problems are never
// surfaced this way, they live inside the returned outcome.
func (e *Executor) Run(ctx context.Context) (*model.LoadOutcome, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	if e.state != StateIdle {
		return nil, eris.Errorf("pipeline: executor already ran (state %s)", e.state)
	}

	for _, p := range phaseOrder {
		if !e.reg.Registered(p) {
			e.state = StateFailed
			return nil, eris.Wrapf(ErrNotRegistered, "pipeline: phase %s", p)
		}
	}

	var batch model.Batch
	var outcome *model.LoadOutcome

	for _, p := range phaseOrder {
		u, _ := e.reg.unit(p)
		e.state = runningState(p)
		log.Info("pipeline: running phase", zap.Stringer("phase", p))
		if e.obs != nil {
			e.obs.PhaseStarted(p)
		}

		start := time.Now()
		var err error
		switch p {
		case PhaseExtract:
			batch, err = u.extract(ctx)
		case PhaseTransform:
			batch, err = u.transform(ctx, batch)
		case PhaseLoad:
			outcome, err = u.load(ctx, batch)
		}
		duration := time.Since(start)

		if e.obs != nil {
			e.obs.PhaseCompleted(p, duration, err)
		}
		if err != nil {
			e.state = StateFailed
			log.Error("pipeline: phase failed",
				zap.Stringer("phase", p),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return nil, err
		}

		log.Info("pipeline: phase complete",
			zap.Stringer("phase", p),
			zap.Duration("duration", duration),
		)
	}

	e.state = StateCompleted
	return outcome, nil
}
