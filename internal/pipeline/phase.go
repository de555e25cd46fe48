// Package pipeline provides the fixed three-phase migration executor: a
// registry binds a unit of work to each of Extract, Transform, and Load, and
// the executor runs them in that order, threading each phase's output into
// the next.
package pipeline

import (
	"context"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Phase identifies one of the three fixed pipeline stages. Phases are
// totally ordered: PhaseExtract < PhaseTransform < PhaseLoad.
type Phase int

const (
	PhaseExtract Phase = iota
	PhaseTransform
	PhaseLoad
)

// String returns the phase's display name.
func (p Phase) String() string {
	switch p {
	case PhaseExtract:
		return "Extract"
	case PhaseTransform:
		return "Transform"
	case PhaseLoad:
		return "Load"
	}
	return "Unknown"
}

// phaseOrder is the fixed execution order. Registration order never
// influences it.
var phaseOrder = [...]Phase{PhaseExtract, PhaseTransform, PhaseLoad}

// ExtractFunc produces the source batch. It is invoked with no input.
type ExtractFunc func(ctx context.Context) (model.Batch, error)

// TransformFunc consumes the extracted batch and returns the accepted,
// transformed batch.
type TransformFunc func(ctx context.Context, batch model.Batch) (model.Batch, error)

// LoadFunc consumes the transformed batch and returns the load outcome,
// which the executor returns verbatim as the pipeline result.
type LoadFunc func(ctx context.Context, batch model.Batch) (*model.LoadOutcome, error)

// Unit is a callable tagged with the phase it implements. Units are built
// with Extract, Transform, or Load; the tag travels with the callable so a
// registry can place it without any attribute probing.
type Unit struct {
	phase     Phase
	extract   ExtractFunc
	transform TransformFunc
	load      LoadFunc
}

// Phase returns the phase this unit is declared for.
func (u Unit) Phase() Phase { return u.phase }

// Extract tags fn as the Extract phase unit.
func Extract(fn ExtractFunc) Unit {
	return Unit{phase: PhaseExtract, extract: fn}
}

// Transform tags fn as the Transform phase unit.
func Transform(fn TransformFunc) Unit {
	return Unit{phase: PhaseTransform, transform: fn}
}

// Load tags fn as the Load phase unit.
func Load(fn LoadFunc) Unit {
	return Unit{phase: PhaseLoad, load: fn}
}
