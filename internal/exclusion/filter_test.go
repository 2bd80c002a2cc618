package exclusion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soclabs/copilot/internal/models"
)

type fakeRecorder struct {
	recorded []string
	err      error
}

func (r *fakeRecorder) RecordMatch(_ context.Context, ruleID string) error {
	r.recorded = append(r.recorded, ruleID)
	return r.err
}

func strPtr(s string) *string { return &s }

func event(fields map[string]any) *models.Event {
	return &models.Event{Index: "copilot-auth-000001", ID: "evt-1", Fields: fields}
}

func TestFilter_ShouldExclude(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		rule    models.ExclusionRule
		fields  map[string]any
		exclude bool
	}{
		{
			name:    "channel only rule matches on channel",
			rule:    models.ExclusionRule{ID: "r1", Channel: "Security", Enabled: true},
			fields:  map[string]any{"channel": "Security"},
			exclude: true,
		},
		{
			name:    "channel mismatch does not match",
			rule:    models.ExclusionRule{ID: "r1", Channel: "Security", Enabled: true},
			fields:  map[string]any{"channel": "Application"},
			exclude: false,
		},
		{
			name: "channel matches but one field match fails",
			rule: models.ExclusionRule{
				ID: "r1", Channel: "Security", Enabled: true,
				FieldMatches: map[string]string{"error_code": "401", "user": "svc-backup"},
			},
			fields:  map[string]any{"channel": "Security", "error_code": "401", "user": "alice"},
			exclude: false,
		},
		{
			name: "all field matches hold",
			rule: models.ExclusionRule{
				ID: "r1", Enabled: true,
				FieldMatches: map[string]string{"error_code": "401", "user": "svc-backup"},
			},
			fields:  map[string]any{"error_code": "401", "user": "svc-backup"},
			exclude: true,
		},
		{
			name: "missing field never matches",
			rule: models.ExclusionRule{
				ID: "r1", Enabled: true,
				FieldMatches: map[string]string{"error_code": "401"},
			},
			fields:  map[string]any{"user": "alice"},
			exclude: false,
		},
		{
			name: "customer scoped rule skips other customers",
			rule: models.ExclusionRule{
				ID: "r1", Channel: "Security", CustomerCode: strPtr("acme"), Enabled: true,
			},
			fields:  map[string]any{"channel": "Security", "customer_code": "globex"},
			exclude: false,
		},
		{
			name: "customer scoped rule matches its customer",
			rule: models.ExclusionRule{
				ID: "r1", Channel: "Security", CustomerCode: strPtr("acme"), Enabled: true,
			},
			fields:  map[string]any{"channel": "Security", "customer_code": "acme"},
			exclude: true,
		},
		{
			name:    "disabled rule never matches",
			rule:    models.ExclusionRule{ID: "r1", Channel: "Security", Enabled: false},
			fields:  map[string]any{"channel": "Security"},
			exclude: false,
		},
		{
			name: "numeric field value compares against its string form",
			rule: models.ExclusionRule{
				ID: "r1", Enabled: true,
				FieldMatches: map[string]string{"error_code": "401"},
			},
			fields:  map[string]any{"error_code": float64(401)},
			exclude: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter([]models.ExclusionRule{tt.rule}, nil)
			assert.Equal(t, tt.exclude, f.ShouldExclude(ctx, event(tt.fields)))
		})
	}
}

func TestFilter_FirstMatchWinsAndRecords(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	f := NewFilter([]models.ExclusionRule{
		{ID: "r1", Channel: "Application", Enabled: true},
		{ID: "r2", Channel: "Security", Enabled: true},
		{ID: "r3", Channel: "Security", Enabled: true},
	}, rec)

	assert.True(t, f.ShouldExclude(ctx, event(map[string]any{"channel": "Security"})))
	assert.Equal(t, []string{"r2"}, rec.recorded)
}

func TestFilter_RecorderFailureDoesNotBlockExclusion(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{err: errors.New("db down")}
	f := NewFilter([]models.ExclusionRule{
		{ID: "r1", Channel: "Security", Enabled: true},
	}, rec)

	assert.True(t, f.ShouldExclude(ctx, event(map[string]any{"channel": "Security"})))
}

func TestFilter_NoRules(t *testing.T) {
	f := NewFilter(nil, nil)
	assert.False(t, f.ShouldExclude(context.Background(), event(map[string]any{"channel": "Security"})))
}
