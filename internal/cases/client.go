// Package cases talks to the case management service: creating and updating
// cases, attaching assets and finding open cases for deduplication.
package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/soclabs/copilot/internal/models"
)

// ErrCaseNotFound is returned when the case service answers 404.
var ErrCaseNotFound = fmt.Errorf("case not found")

// Client is an HTTP client for the case management API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a case service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("case service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCaseNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("case service returned %d: %s", resp.StatusCode, string(errBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode case service response: %w", err)
		}
	}
	return nil
}

// AddCase creates a new case and returns its summary.
func (c *Client) AddCase(ctx context.Context, payload models.CasePayload) (*models.CaseSummary, error) {
	var created models.CaseSummary
	if err := c.do(ctx, http.MethodPost, "/cases", payload, &created); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	return &created, nil
}

// GetCase fetches a single case by id.
func (c *Client) GetCase(ctx context.Context, id int64) (*models.CaseSummary, error) {
	var found models.CaseSummary
	if err := c.do(ctx, http.MethodGet, "/cases/"+strconv.FormatInt(id, 10), nil, &found); err != nil {
		return nil, err
	}
	return &found, nil
}

// UpdateCase applies a partial update to an existing case.
func (c *Client) UpdateCase(ctx context.Context, id int64, partial map[string]interface{}) error {
	if err := c.do(ctx, http.MethodPatch, "/cases/"+strconv.FormatInt(id, 10), partial, nil); err != nil {
		return fmt.Errorf("failed to update case %d: %w", id, err)
	}
	return nil
}

// FilterCases lists cases matching a tag, customer and status.
func (c *Client) FilterCases(ctx context.Context, tag string, customerID int64, status string) ([]models.CaseSummary, error) {
	params := url.Values{}
	params.Set("tag", tag)
	params.Set("customer_id", strconv.FormatInt(customerID, 10))
	params.Set("status", status)

	var listed struct {
		Cases []models.CaseSummary `json:"cases"`
		Total int                  `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/cases?"+params.Encode(), nil, &listed); err != nil {
		return nil, fmt.Errorf("failed to filter cases: %w", err)
	}
	return listed.Cases, nil
}

// AddAsset attaches an asset to a case.
func (c *Client) AddAsset(ctx context.Context, caseID int64, asset models.Asset) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/cases/%d/assets", caseID), asset, nil); err != nil {
		return fmt.Errorf("failed to add asset to case %d: %w", caseID, err)
	}
	return nil
}
