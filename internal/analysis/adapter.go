// Package analysis runs the correlation pipeline: fetch candidate events,
// apply exclusions, correlate, resolve or build cases, and mark processed
// documents. Source-specific knowledge lives behind the SourceAdapter
// interface; the orchestrator is source-agnostic.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soclabs/copilot/internal/correlation"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/search"
)

// ErrUnknownSource is returned when no adapter is registered for a
// source name.
var ErrUnknownSource = errors.New("unknown analysis source")

// SourceAdapter encapsulates everything the pipeline needs to know about
// one event source: where its events live, which correlation rules apply,
// and how a suspicious event becomes a case.
type SourceAdapter interface {
	// Name is the API/config identifier ("wazuh", "suricata", ...).
	Name() string

	// Tag is the case tag the resolver deduplicates on ("copilot_wazuh").
	Tag() string

	// Candidates builds the query for not-yet-processed events in the
	// window for one customer.
	Candidates(settings *models.CustomerAlertSettings, from, to time.Time, size int) search.CandidateQuery

	// Rules returns the correlation rules to run over each page.
	Rules() []correlation.Rule

	// CaseTitle and CaseDescription render the case content for a firing.
	CaseTitle(se *models.SuspiciousEvent) string
	CaseDescription(se *models.SuspiciousEvent, settings *models.CustomerAlertSettings) string

	// Asset is the host/account record attached to the case.
	Asset(se *models.SuspiciousEvent) models.Asset

	// IOCCandidates lists raw values scanned for a case indicator.
	IOCCandidates(se *models.SuspiciousEvent) []string

	// Severity for newly opened cases.
	Severity() string
}

// StatefulAdapter is implemented by adapters that suppress re-firing across
// passes through shared pass state.
type StatefulAdapter interface {
	SourceAdapter
	FilterFirings(ctx context.Context, firings []models.SuspiciousEvent) []models.SuspiciousEvent
}

// Registry maps source names to adapters.
type Registry struct {
	adapters map[string]SourceAdapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...SourceAdapter) *Registry {
	r := &Registry{adapters: make(map[string]SourceAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for a source name.
func (r *Registry) Get(name string) (SourceAdapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, name)
	}
	return a, nil
}

// Names lists registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// timefield returns the customer's configured time field, defaulting to
// timestamp_utc.
func timefield(settings *models.CustomerAlertSettings) string {
	if settings.TimefieldName != "" {
		return settings.TimefieldName
	}
	return "timestamp_utc"
}
