package correlation

import (
	"sort"

	"github.com/soclabs/copilot/internal/models"
)

// FailureThresholdRule counts consecutive failures per key and fires when a
// success arrives after at least Threshold failures (inclusive comparison).
// Any success resets the counter, so a clean login does not carry stale
// failure history into the next accumulation.
type FailureThresholdRule struct {
	RuleName  string
	Threshold int
	Key       KeyFunc
	Status    StatusFunc
}

type failureState struct {
	count    int
	evidence []string
}

func (r *FailureThresholdRule) Name() string { return r.RuleName }

func (r *FailureThresholdRule) Correlate(events []models.Event) []models.SuspiciousEvent {
	states := make(map[string]*failureState)
	var out []models.SuspiciousEvent

	for i := range events {
		e := &events[i]
		key, ok := r.Key(e)
		if !ok {
			continue
		}
		st := states[key]
		if st == nil {
			st = &failureState{}
			states[key] = st
		}

		switch r.Status(e) {
		case StatusFailure:
			st.count++
			st.evidence = append(st.evidence, e.ID)
		case StatusSuccess:
			if st.count >= r.Threshold {
				out = append(out, models.SuspiciousEvent{
					Event:    *e,
					RuleName: r.RuleName,
					Key:      key,
					Evidence: append(append([]string{}, st.evidence...), e.ID),
					Details: map[string]any{
						"failure_count": st.count,
						"threshold":     r.Threshold,
					},
				})
			}
			// One-shot: the accumulation is spent either way.
			st.count = 0
			st.evidence = nil
		}
	}
	return out
}

// DistinctValuesRule accumulates the distinct secondary values seen per key
// over the whole scan and fires once per key when the distinct count
// strictly exceeds Threshold; exactly Threshold distinct values emits
// nothing. The comparison differs from FailureThresholdRule's >= and is
// pinned by tests.
type DistinctValuesRule struct {
	RuleName  string
	Threshold int
	Key       KeyFunc
	Value     ValueFunc
	// Status optionally restricts which events contribute values.
	// Nil means every event with a key and value contributes.
	Status StatusFunc
	// Only contributes events with this status when Status is set.
	CountStatus Status
}

type distinctState struct {
	values   map[string]bool
	evidence []string
	fired    bool
}

func (r *DistinctValuesRule) Name() string { return r.RuleName }

func (r *DistinctValuesRule) Correlate(events []models.Event) []models.SuspiciousEvent {
	states := make(map[string]*distinctState)
	var out []models.SuspiciousEvent

	for i := range events {
		e := &events[i]
		key, ok := r.Key(e)
		if !ok {
			continue
		}
		if r.Status != nil && r.Status(e) != r.CountStatus {
			continue
		}
		value, ok := r.Value(e)
		if !ok {
			continue
		}
		st := states[key]
		if st == nil {
			st = &distinctState{values: make(map[string]bool)}
			states[key] = st
		}
		if st.fired || st.values[value] {
			continue
		}
		st.values[value] = true
		st.evidence = append(st.evidence, e.ID)

		if len(st.values) > r.Threshold {
			st.fired = true
			out = append(out, models.SuspiciousEvent{
				Event:    *e,
				RuleName: r.RuleName,
				Key:      key,
				Evidence: append([]string{}, st.evidence...),
				Details: map[string]any{
					"distinct_count":  len(st.values),
					"threshold":       r.Threshold,
					"distinct_values": sortedKeys(st.values),
				},
			})
		}
	}
	return out
}

// GeoDivergenceRule tracks the countries of failed attempts per key and
// fires at the first successful attempt from a country not seen among the
// failures. Failed attempts from new countries extend the baseline rather
// than firing: [fail US, fail CA, success UK] emits exactly one suspicious
// event, at the UK login. One-shot per key per pass.
type GeoDivergenceRule struct {
	RuleName string
	Key      KeyFunc
	Country  ValueFunc
	Status   StatusFunc
}

type geoState struct {
	countries map[string]bool
	evidence  []string
	fired     bool
}

func (r *GeoDivergenceRule) Name() string { return r.RuleName }

func (r *GeoDivergenceRule) Correlate(events []models.Event) []models.SuspiciousEvent {
	states := make(map[string]*geoState)
	var out []models.SuspiciousEvent

	for i := range events {
		e := &events[i]
		key, ok := r.Key(e)
		if !ok {
			continue
		}
		country, ok := r.Country(e)
		if !ok {
			continue
		}
		st := states[key]
		if st == nil {
			st = &geoState{countries: make(map[string]bool)}
			states[key] = st
		}
		if st.fired {
			continue
		}

		switch r.Status(e) {
		case StatusFailure:
			st.countries[country] = true
			st.evidence = append(st.evidence, e.ID)
		case StatusSuccess:
			if len(st.countries) > 0 && !st.countries[country] {
				st.fired = true
				out = append(out, models.SuspiciousEvent{
					Event:    *e,
					RuleName: r.RuleName,
					Key:      key,
					Evidence: append(append([]string{}, st.evidence...), e.ID),
					Details: map[string]any{
						"failed_countries": sortedKeys(st.countries),
						"success_country":  country,
					},
				})
			}
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
