package repository

import (
	"context"
	"errors"

	"github.com/soclabs/copilot/internal/models"
)

var (
	ErrRuleNotFound     = errors.New("exclusion rule not found")
	ErrCustomerNotFound = errors.New("customer alert settings not found")
)

// Repository persists exclusion rules and customer alert settings.
type Repository interface {
	CreateRule(ctx context.Context, rule *models.ExclusionRule) error
	GetRule(ctx context.Context, id string) (*models.ExclusionRule, error)
	ListRules(ctx context.Context, req *models.ListExclusionRulesRequest) ([]models.ExclusionRule, int, error)
	UpdateRule(ctx context.Context, id string, req *models.UpdateExclusionRuleRequest) (*models.ExclusionRule, error)
	DeleteRule(ctx context.Context, id string) error
	ToggleRule(ctx context.Context, id string) (*models.ExclusionRule, error)

	// RecordMatch bumps match_count and last_matched_at for a rule that
	// suppressed an event. Best-effort from the caller's point of view.
	RecordMatch(ctx context.Context, ruleID string) error

	GetCustomerAlertSettings(ctx context.Context, customerCode string) (*models.CustomerAlertSettings, error)
	ListCustomerCodes(ctx context.Context) ([]string, error)

	Close()
}
