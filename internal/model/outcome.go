package model

// ValidationOutcome reports the result of validating a single record.
// Errors holds one human-readable reason per failed constraint, in the order
// the constraints are defined.
type ValidationOutcome struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// BatchOutcome aggregates per-record validation results across one batch.
// AcceptedCount + RejectedCount always equals the input batch length, and
// RejectedIndices is strictly increasing in original batch order.
type BatchOutcome struct {
	AcceptedCount   int              `json:"accepted_count"`
	RejectedCount   int              `json:"rejected_count"`
	RejectedIndices []int            `json:"rejected_indices,omitempty"`
	RejectedReasons map[int][]string `json:"rejected_reasons,omitempty"`
}

// FailureDetail identifies one record that failed during load, by its index
// within the accepted batch.
type FailureDetail struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// LoadOutcome is the pipeline's final result. When Success is true,
// RecordsSucceeded + RecordsFailed == RecordsAttempted. When both load paths
// fail for reasons unrelated to individual records, Success is false and the
// per-record counts are not claimed; Error carries the destination failure.
type LoadOutcome struct {
	Success          bool            `json:"success"`
	RecordsAttempted int             `json:"records_attempted"`
	RecordsSucceeded int             `json:"records_succeeded"`
	RecordsFailed    int             `json:"records_failed"`
	FailureDetails   []FailureDetail `json:"failure_details,omitempty"`
	Error            string          `json:"error,omitempty"`
}
