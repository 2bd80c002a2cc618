// Package service holds the business layer between the API handlers and the
// stores: rule validation, analysis dispatch.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soclabs/copilot/internal/analysis"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/repository"
)

// ErrDegenerateRule rejects exclusion rules with no discriminating
// condition; such a rule would silently suppress every event.
var ErrDegenerateRule = errors.New("exclusion rule must set a channel, a title or at least one field match")

// AnalysisRunner is the slice of the orchestrator the service dispatches to.
type AnalysisRunner interface {
	Run(ctx context.Context, adapter analysis.SourceAdapter, customer string) (*models.AnalysisReport, error)
	RunAll(ctx context.Context, adapter analysis.SourceAdapter) []*models.AnalysisReport
}

// Service wires the admin API to the rule store and the analysis pipeline.
type Service struct {
	repo     repository.Repository
	orch     AnalysisRunner
	registry *analysis.Registry
}

// NewService creates the service layer.
func NewService(repo repository.Repository, orch AnalysisRunner, registry *analysis.Registry) *Service {
	return &Service{repo: repo, orch: orch, registry: registry}
}

// CreateExclusionRule validates and persists a new rule.
func (s *Service) CreateExclusionRule(ctx context.Context, req *models.CreateExclusionRuleRequest, createdBy string) (*models.ExclusionRule, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule id: %w", err)
	}

	rule := &models.ExclusionRule{
		ID:           id.String(),
		Name:         req.Name,
		Channel:      req.Channel,
		Title:        req.Title,
		FieldMatches: req.FieldMatches,
		CustomerCode: req.CustomerCode,
		Enabled:      enabled,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now().UTC(),
	}
	if !rule.HasCondition() {
		return nil, ErrDegenerateRule
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetExclusionRule fetches one rule.
func (s *Service) GetExclusionRule(ctx context.Context, id string) (*models.ExclusionRule, error) {
	return s.repo.GetRule(ctx, id)
}

// ListExclusionRules lists rules with pagination.
func (s *Service) ListExclusionRules(ctx context.Context, req *models.ListExclusionRulesRequest) ([]models.ExclusionRule, int, error) {
	return s.repo.ListRules(ctx, req)
}

// UpdateExclusionRule applies a partial update, refusing updates that would
// leave the rule without any condition.
func (s *Service) UpdateExclusionRule(ctx context.Context, id string, req *models.UpdateExclusionRuleRequest) (*models.ExclusionRule, error) {
	existing, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if req.Channel != nil {
		merged.Channel = *req.Channel
	}
	if req.Title != nil {
		merged.Title = *req.Title
	}
	if req.FieldMatches != nil {
		merged.FieldMatches = *req.FieldMatches
	}
	if !merged.HasCondition() {
		return nil, ErrDegenerateRule
	}

	return s.repo.UpdateRule(ctx, id, req)
}

// DeleteExclusionRule removes a rule.
func (s *Service) DeleteExclusionRule(ctx context.Context, id string) error {
	return s.repo.DeleteRule(ctx, id)
}

// ToggleExclusionRule flips a rule's enabled state.
func (s *Service) ToggleExclusionRule(ctx context.Context, id string) (*models.ExclusionRule, error) {
	return s.repo.ToggleRule(ctx, id)
}

// RunAnalysis runs one source synchronously. With a customer code it runs a
// single pass; without one it fans out across every customer.
func (s *Service) RunAnalysis(ctx context.Context, source, customer string) ([]*models.AnalysisReport, error) {
	adapter, err := s.registry.Get(source)
	if err != nil {
		return nil, err
	}

	if customer != "" {
		report, err := s.orch.Run(ctx, adapter, customer)
		if err != nil {
			return nil, err
		}
		return []*models.AnalysisReport{report}, nil
	}
	return s.orch.RunAll(ctx, adapter), nil
}

// Sources lists the registered analysis sources.
func (s *Service) Sources() []string {
	return s.registry.Names()
}
