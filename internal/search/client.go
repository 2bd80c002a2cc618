// Package search wraps the OpenSearch client with the candidate-event
// queries, scroll handling and document updates the analysis pipeline needs.
package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
)

// Config holds OpenSearch connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Insecure bool
}

// Client provides access to source events stored in OpenSearch.
type Client struct {
	client *opensearch.Client
}

// NewClient creates a new OpenSearch client and verifies connectivity.
func NewClient(cfg Config) (*Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &Client{client: client}, nil
}

// newClientUnchecked builds a client without the connectivity ping.
// Used by tests against httptest servers.
func newClientUnchecked(cfg Config) (*Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// CandidateQuery describes one page-one fetch of not-yet-processed events.
type CandidateQuery struct {
	Indices     []string
	Timefield   string
	From        time.Time
	To          time.Time
	TermFilters map[string]string
	// ExcludeFlags lists processed-flag names; documents with any of them
	// set to true are filtered out.
	ExcludeFlags []string
	Size         int
	// ScrollKeepAlive enables scroll retrieval when non-zero.
	ScrollKeepAlive time.Duration
}

// Page is one batch of candidate events plus the scroll cursor to fetch the
// next one. Events are sorted ascending by the query's timefield; the
// correlator depends on that ordering.
type Page struct {
	Events   []models.Event
	Total    int
	ScrollID string
}

// SearchCandidates runs the initial candidate query: a bool query combining
// the time range, the term filters and the not-yet-processed flag clauses,
// sorted ascending by the timefield.
func (c *Client) SearchCandidates(ctx context.Context, q CandidateQuery) (*Page, error) {
	must := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				q.Timefield: map[string]interface{}{
					"gte": q.From.UTC().Format(time.RFC3339),
					"lte": q.To.UTC().Format(time.RFC3339),
				},
			},
		},
	}
	for field, value := range q.TermFilters {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}

	mustNot := make([]map[string]interface{}, 0, len(q.ExcludeFlags))
	for _, flag := range q.ExcludeFlags {
		mustNot = append(mustNot, map[string]interface{}{
			"term": map[string]interface{}{flag: true},
		})
	}

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":     must,
				"must_not": mustNot,
			},
		},
		"size": q.Size,
		"sort": []map[string]interface{}{
			{q.Timefield: map[string]interface{}{"order": "asc", "unmapped_type": "date"}},
		},
	}

	bodyBytes, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(q.Indices...),
		c.client.Search.WithBody(bytes.NewReader(bodyBytes)),
		c.client.Search.WithTrackTotalHits(true),
		c.client.Search.WithScroll(q.ScrollKeepAlive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("candidate search returned %s: %s", res.Status(), string(errBody))
	}

	return parsePage(res.Body, q.Timefield)
}

// Scroll fetches the next batch for an open scroll cursor.
func (c *Client) Scroll(ctx context.Context, scrollID string, keepAlive time.Duration, timefield string) (*Page, error) {
	res, err := c.client.Scroll(
		c.client.Scroll.WithContext(ctx),
		c.client.Scroll.WithScrollID(scrollID),
		c.client.Scroll.WithScroll(keepAlive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("scroll returned %s: %s", res.Status(), string(errBody))
	}

	return parsePage(res.Body, timefield)
}

// ClearScroll releases a scroll cursor. Failures are non-fatal; the cursor
// expires on its own after the keep-alive.
func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	if scrollID == "" {
		return nil
	}
	res, err := c.client.ClearScroll(
		c.client.ClearScroll.WithContext(ctx),
		c.client.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		return fmt.Errorf("failed to clear scroll: %w", err)
	}
	defer res.Body.Close()
	return nil
}

// UpdateDocument applies a partial update to a source document.
func (c *Client) UpdateDocument(ctx context.Context, ref models.DocumentRef, partial map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"doc": partial})
	if err != nil {
		return fmt.Errorf("failed to marshal partial doc: %w", err)
	}

	res, err := c.client.Update(
		ref.Index, ref.ID, bytes.NewReader(body),
		c.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", ref.Index, ref.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return &updateError{
			status: res.StatusCode,
			body:   string(errBody),
			ref:    ref,
		}
	}
	return nil
}

// SetWriteBlock enables or disables the write block on an index.
func (c *Client) SetWriteBlock(ctx context.Context, index string, blocked bool) error {
	body, err := json.Marshal(map[string]interface{}{
		"index": map[string]interface{}{
			"blocks": map[string]interface{}{"write": blocked},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settings body: %w", err)
	}

	res, err := c.client.Indices.PutSettings(
		bytes.NewReader(body),
		c.client.Indices.PutSettings.WithContext(ctx),
		c.client.Indices.PutSettings.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("failed to set write block on %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("set write block on %s returned %s: %s", index, res.Status(), string(errBody))
	}
	return nil
}

// parsePage decodes a search/scroll response into a Page.
func parsePage(body io.Reader, timefield string) (*Page, error) {
	var parsed struct {
		ScrollID string `json:"_scroll_id"`
		Hits     struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Index  string                 `json:"_index"`
				ID     string                 `json:"_id"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	page := &Page{
		Total:    parsed.Hits.Total.Value,
		ScrollID: parsed.ScrollID,
		Events:   make([]models.Event, 0, len(parsed.Hits.Hits)),
	}

	resolver := fields.NewResolver(timefield, "timestamp_utc", "timestamp", "@timestamp", "time")
	for _, hit := range parsed.Hits.Hits {
		e := models.Event{
			Index:          hit.Index,
			ID:             hit.ID,
			Fields:         hit.Source,
			ProcessedFlags: extractFlags(hit.Source),
		}
		if ts, err := resolver.ResolveTime(&e); err == nil {
			e.Timestamp = ts
		}
		page.Events = append(page.Events, e)
	}
	return page, nil
}

func extractFlags(source map[string]interface{}) map[string]bool {
	flags := map[string]bool{}
	for _, name := range []string{models.FlagCaseCreated, models.FlagEventAnalyzed, models.FlagEventExcluded} {
		if v, ok := source[name].(bool); ok {
			flags[name] = v
		}
	}
	return flags
}
