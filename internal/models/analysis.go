package models

// OutcomeKind enumerates what happened to a single suspicious event.
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeExcluded OutcomeKind = "excluded"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the per-event result of the resolve/build step. Callers branch
// on Kind instead of catching control-flow errors.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	CaseID int64       `json:"case_id,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Err    error       `json:"-"`
}

// AnalysisReport is the caller-visible summary of one orchestrator run,
// returned when the pipeline is invoked synchronously over the API and
// logged when invoked by the scheduler.
type AnalysisReport struct {
	Source           string   `json:"source"`
	Customer         string   `json:"customer"`
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	AlertsCreated    int      `json:"alerts_created"`
	AlertsUpdated    int      `json:"alerts_updated"`
	AlertsSkipped    int      `json:"alerts_skipped"`
	AlertsFailed     int      `json:"alerts_failed"`
	EventsExcluded   int      `json:"events_excluded"`
	BatchesProcessed int      `json:"batches_processed"`
	AlertsRemaining  int      `json:"alerts_remaining"`
	Errors           []string `json:"errors,omitempty"`
}
