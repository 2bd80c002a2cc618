// Package exclusion evaluates events against persisted suppression rules
// before correlation runs. Matching is pure; rule bookkeeping (match counts)
// goes through an injected recorder and is best-effort.
package exclusion

import (
	"context"
	"log"

	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
)

// MatchRecorder records that a rule suppressed an event. Implemented by the
// repository; a failure to record must never block the exclusion itself.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, ruleID string) error
}

// Filter matches events against a fixed rule set for the duration of one
// orchestrator pass.
type Filter struct {
	rules    []models.ExclusionRule
	recorder MatchRecorder
}

// NewFilter builds a filter over the given rules. recorder may be nil.
func NewFilter(rules []models.ExclusionRule, recorder MatchRecorder) *Filter {
	return &Filter{rules: rules, recorder: recorder}
}

// channelResolver and titleResolver locate the event attributes the
// channel/title conditions compare against.
var (
	channelResolver = fields.NewResolver("channel", "rule_group", "data_win_system_channel")
	titleResolver   = fields.NewResolver("title", "rule_description", "alert_title")
)

// ShouldExclude reports whether any enabled rule matches the event. The first
// matching rule wins and its bookkeeping is recorded best-effort. The event
// itself is never mutated.
func (f *Filter) ShouldExclude(ctx context.Context, e *models.Event) bool {
	for i := range f.rules {
		rule := &f.rules[i]
		if !rule.Enabled {
			continue
		}
		if !ruleMatches(rule, e) {
			continue
		}
		if f.recorder != nil {
			if err := f.recorder.RecordMatch(ctx, rule.ID); err != nil {
				log.Printf("exclusion: failed to record match for rule %s: %v", rule.ID, err)
			}
		}
		return true
	}
	return false
}

// ruleMatches applies the match predicate: every set condition must hold,
// and a missing event field never matches.
func ruleMatches(rule *models.ExclusionRule, e *models.Event) bool {
	if rule.Channel != "" {
		channel, ok := channelResolver.ResolveString(e)
		if !ok || channel != rule.Channel {
			return false
		}
	}
	if rule.Title != "" {
		title, ok := titleResolver.ResolveString(e)
		if !ok || title != rule.Title {
			return false
		}
	}
	if rule.CustomerCode != nil {
		customer, ok := fields.CustomerCode.ResolveString(e)
		if !ok || customer != *rule.CustomerCode {
			return false
		}
	}
	for field, expected := range rule.FieldMatches {
		actual, ok := fields.NewResolver(field).ResolveString(e)
		if !ok || actual != expected {
			return false
		}
	}
	return true
}
