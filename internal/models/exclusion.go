package models

import "time"

// ExclusionRule is a persisted suppression condition. An event matching an
// enabled rule is dropped before correlation ever sees it. A rule must carry
// at least one discriminating condition (channel, title or a field match);
// the service layer rejects degenerate rules at creation time.
type ExclusionRule struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Channel       string            `json:"channel,omitempty"`
	Title         string            `json:"title,omitempty"`
	FieldMatches  map[string]string `json:"field_matches,omitempty"`
	CustomerCode  *string           `json:"customer_code,omitempty"` // nil = all customers
	Enabled       bool              `json:"enabled"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	LastMatchedAt *time.Time        `json:"last_matched_at,omitempty"`
	MatchCount    int64             `json:"match_count"`
}

// HasCondition reports whether the rule carries at least one
// discriminating condition.
func (r *ExclusionRule) HasCondition() bool {
	return r.Channel != "" || r.Title != "" || len(r.FieldMatches) > 0
}

// CreateExclusionRuleRequest is the admin API payload for creating a rule.
type CreateExclusionRuleRequest struct {
	Name         string            `json:"name"`
	Channel      string            `json:"channel,omitempty"`
	Title        string            `json:"title,omitempty"`
	FieldMatches map[string]string `json:"field_matches,omitempty"`
	CustomerCode *string           `json:"customer_code,omitempty"`
	Enabled      *bool             `json:"enabled,omitempty"` // default true
}

// UpdateExclusionRuleRequest carries partial updates; nil means unchanged.
type UpdateExclusionRuleRequest struct {
	Name         *string            `json:"name,omitempty"`
	Channel      *string            `json:"channel,omitempty"`
	Title        *string            `json:"title,omitempty"`
	FieldMatches *map[string]string `json:"field_matches,omitempty"`
	CustomerCode *string            `json:"customer_code,omitempty"`
	Enabled      *bool              `json:"enabled,omitempty"`
}

// ListExclusionRulesRequest holds list query parameters.
type ListExclusionRulesRequest struct {
	Skip        int
	Limit       int
	EnabledOnly bool
}
