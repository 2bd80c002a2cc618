package cases

import (
	"context"
	"fmt"

	"github.com/soclabs/copilot/internal/models"
)

// Resolver decides whether a suspicious event belongs to an existing open
// case or needs a new one.
type Resolver struct {
	client *Client
}

// NewResolver returns a resolver over the given case client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// FindOpenCase looks for an open case carrying the source tag for the
// customer. Returns nil when no open case exists. When the case service
// reports several, the oldest one wins so concurrent passes converge on the
// same case.
func (r *Resolver) FindOpenCase(ctx context.Context, tag string, customerID int64) (*models.CaseSummary, error) {
	matches, err := r.client.FilterCases(ctx, tag, customerID, models.CaseStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve open case for tag %q customer %d: %w", tag, customerID, err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	oldest := matches[0]
	for _, m := range matches[1:] {
		if m.CreatedAt.Before(oldest.CreatedAt) {
			oldest = m
		}
	}
	return &oldest, nil
}
