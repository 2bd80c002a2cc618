// Package correlation implements the windowed correlation rules the
// analyzers share. Rules are pure: they take a timestamp-ascending slice of
// events, hold per-key counters for the duration of one pass, and emit
// suspicious events when their condition fires. All I/O (candidate retrieval,
// case handling, marker writes) belongs to the orchestrator.
package correlation

import "github.com/soclabs/copilot/internal/models"

// Status classifies an event's outcome for counting purposes.
type Status int

const (
	StatusOther Status = iota
	StatusFailure
	StatusSuccess
)

// KeyFunc projects an event onto its correlation key (e.g. source IP,
// login id). The second return is false when the event lacks the key,
// in which case the event is ignored by the rule.
type KeyFunc func(e *models.Event) (string, bool)

// ValueFunc projects an event onto a secondary attribute (distinct user,
// distinct signature, country).
type ValueFunc func(e *models.Event) (string, bool)

// StatusFunc classifies an event's outcome.
type StatusFunc func(e *models.Event) Status

// Rule is a counting automaton over a timestamp-ascending event sequence.
//
// Correlate must be deterministic and free of side effects: running it twice
// over the same input yields the same suspicious events.
type Rule interface {
	Name() string
	Correlate(events []models.Event) []models.SuspiciousEvent
}
