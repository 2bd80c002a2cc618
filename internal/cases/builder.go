package cases

import (
	"context"
	"fmt"

	"github.com/soclabs/copilot/internal/ioc"
	"github.com/soclabs/copilot/internal/models"
)

// CaseSpec is everything the builder needs to open a case for a suspicious
// event. Source adapters fill it from their own field layouts.
type CaseSpec struct {
	Title       string
	Description string
	Tag         string
	CustomerID  int64
	Severity    string
	Asset       models.Asset
	// IOCCandidates are raw field values scanned for indicators; the first
	// recognized one becomes the case's single IOC.
	IOCCandidates []string
}

// Builder creates cases and appends assets to existing ones.
type Builder struct {
	client *Client
}

// NewBuilder returns a builder over the given case client.
func NewBuilder(client *Client) *Builder {
	return &Builder{client: client}
}

// CreateCase opens a new case with one asset and at most one detected IOC.
func (b *Builder) CreateCase(ctx context.Context, spec CaseSpec) (*models.CaseSummary, error) {
	payload := models.CasePayload{
		Title:       spec.Title,
		Description: spec.Description,
		CustomerID:  spec.CustomerID,
		Severity:    spec.Severity,
		Tags:        []string{spec.Tag},
		Assets:      []models.Asset{spec.Asset},
	}

	for _, candidate := range spec.IOCCandidates {
		if iocType, ok := ioc.Detect(candidate); ok {
			payload.IOCs = []models.IOC{{
				Value:       candidate,
				Type:        string(iocType),
				Description: "detected during correlation",
			}}
			break
		}
	}

	created, err := b.client.AddCase(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build case %q: %w", spec.Title, err)
	}
	return created, nil
}

// AppendAsset attaches an asset to an existing case. Assets are keyed by
// name: an identical record is a no-op, a record with the same name but
// different content replaces the stored one, and anything else is appended.
// Returns true when the case changed.
func (b *Builder) AppendAsset(ctx context.Context, caseID int64, asset models.Asset) (bool, error) {
	existing, err := b.client.GetCase(ctx, caseID)
	if err != nil {
		return false, fmt.Errorf("failed to load case %d for asset merge: %w", caseID, err)
	}

	for i, have := range existing.Assets {
		if have.Name != asset.Name {
			continue
		}
		if have == asset {
			return false, nil
		}
		merged := make([]models.Asset, len(existing.Assets))
		copy(merged, existing.Assets)
		merged[i] = asset
		if err := b.client.UpdateCase(ctx, caseID, map[string]interface{}{"assets": merged}); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := b.client.AddAsset(ctx, caseID, asset); err != nil {
		return false, err
	}
	return true, nil
}
