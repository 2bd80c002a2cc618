package models

import "time"

// Processed-flag field names written back onto source event documents.
const (
	FlagCaseCreated   = "case_created"
	FlagEventAnalyzed = "event_analyzed"
	FlagEventExcluded = "event_excluded"
)

// Event is a single log/alert record pulled from the event search index.
// Fields carries the open per-source schema; ProcessedFlags mirrors the
// boolean idempotency markers stored on the document itself.
type Event struct {
	Index          string          `json:"_index"`
	ID             string          `json:"_id"`
	Timestamp      time.Time       `json:"@timestamp"`
	Fields         map[string]any  `json:"fields"`
	ProcessedFlags map[string]bool `json:"processed_flags,omitempty"`
}

// StringField returns the event field at name as a string.
// Non-string scalars are not coerced; callers that need coercion go
// through a fields.Resolver.
func (e *Event) StringField(name string) (string, bool) {
	v, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Flag reports whether the named processed flag is set on the event.
func (e *Event) Flag(name string) bool {
	return e.ProcessedFlags[name]
}

// Ref identifies the event's backing document for partial updates.
func (e *Event) Ref() DocumentRef {
	return DocumentRef{Index: e.Index, ID: e.ID}
}

// DocumentRef locates a document in the search index.
type DocumentRef struct {
	Index string `json:"index"`
	ID    string `json:"id"`
}

// SuspiciousEvent is an event for which a correlation rule has fired,
// plus the rule and the key that fired it. It is the unit of work handed
// to the case resolver.
type SuspiciousEvent struct {
	Event    Event  `json:"event"`
	RuleName string `json:"rule_name"`
	Key      string `json:"key"`
	// Evidence holds the IDs of the events that contributed to the firing,
	// the flagged event included.
	Evidence []string       `json:"evidence"`
	Details  map[string]any `json:"details,omitempty"`
}
