package model

import "time"

// RunStatus represents the current state of a migration run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded migration run.
type Run struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Status     RunStatus    `json:"status"`
	Outcome    *LoadOutcome `json:"outcome,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// PhaseStatus represents the state of one phase within a run.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// RunPhase is the persisted record of one phase execution.
type RunPhase struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    PhaseStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	Duration  int64       `json:"duration_ms"`
	StartedAt time.Time   `json:"started_at"`
}
