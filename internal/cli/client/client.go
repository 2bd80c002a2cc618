package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soclabs/copilot/internal/models"
)

// Client speaks to the CoPilot admin API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.client.Do(req)
}

func decodeResponse(resp *http.Response, want int, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ListExclusionsResponse struct {
	Rules []models.ExclusionRule `json:"rules"`
	Total int64                  `json:"total"`
	Skip  int                    `json:"skip"`
	Limit int                    `json:"limit"`
}

func (c *Client) ListExclusions(skip, limit int, enabledOnly bool) (*ListExclusionsResponse, error) {
	q := url.Values{}
	q.Set("skip", fmt.Sprintf("%d", skip))
	q.Set("limit", fmt.Sprintf("%d", limit))
	if enabledOnly {
		q.Set("enabled_only", "true")
	}

	resp, err := c.doRequest(http.MethodGet, "/exclusion?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out ListExclusionsResponse
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("failed to list exclusion rules: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateExclusion(req *models.CreateExclusionRuleRequest) (*models.ExclusionRule, error) {
	resp, err := c.doRequest(http.MethodPost, "/exclusion", req)
	if err != nil {
		return nil, err
	}

	var rule models.ExclusionRule
	if err := decodeResponse(resp, http.StatusCreated, &rule); err != nil {
		return nil, fmt.Errorf("failed to create exclusion rule: %w", err)
	}
	return &rule, nil
}

func (c *Client) GetExclusion(id string) (*models.ExclusionRule, error) {
	resp, err := c.doRequest(http.MethodGet, "/exclusion/"+id, nil)
	if err != nil {
		return nil, err
	}

	var rule models.ExclusionRule
	if err := decodeResponse(resp, http.StatusOK, &rule); err != nil {
		return nil, fmt.Errorf("failed to get exclusion rule: %w", err)
	}
	return &rule, nil
}

func (c *Client) DeleteExclusion(id string) error {
	resp, err := c.doRequest(http.MethodDelete, "/exclusion/"+id, nil)
	if err != nil {
		return err
	}

	if err := decodeResponse(resp, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to delete exclusion rule: %w", err)
	}
	return nil
}

func (c *Client) ToggleExclusion(id string) (*models.ExclusionRule, error) {
	resp, err := c.doRequest(http.MethodPost, "/exclusion/"+id+"/toggle", nil)
	if err != nil {
		return nil, err
	}

	var rule models.ExclusionRule
	if err := decodeResponse(resp, http.StatusOK, &rule); err != nil {
		return nil, fmt.Errorf("failed to toggle exclusion rule: %w", err)
	}
	return &rule, nil
}

type AnalysisResponse struct {
	Source  string                   `json:"source"`
	Reports []*models.AnalysisReport `json:"reports"`
}

func (c *Client) RunAnalysis(source, customer string) (*AnalysisResponse, error) {
	path := "/analysis/" + source
	if customer != "" {
		path += "?customer=" + url.QueryEscape(customer)
	}

	resp, err := c.doRequest(http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var out AnalysisResponse
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("failed to run analysis: %w", err)
	}
	return &out, nil
}

func (c *Client) ListSources() ([]string, error) {
	resp, err := c.doRequest(http.MethodGet, "/analysis", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Sources []string `json:"sources"`
	}
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("failed to list analysis sources: %w", err)
	}
	return out.Sources, nil
}
