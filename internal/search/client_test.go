package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/copilot/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newClientUnchecked(Config{URL: server.URL})
	require.NoError(t, err)
	return client, server
}

func searchResponse(total int, scrollID string, hits ...map[string]interface{}) string {
	wrapped := make([]map[string]interface{}, 0, len(hits))
	for i, h := range hits {
		wrapped = append(wrapped, map[string]interface{}{
			"_index":  "wazuh-test-001",
			"_id":     fmt.Sprintf("doc-%d", i+1),
			"_source": h,
		})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"_scroll_id": scrollID,
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": total},
			"hits":  wrapped,
		},
	})
	return string(body)
}

func TestSearchCandidates(t *testing.T) {
	var capturedBody map[string]interface{}
	var capturedPath string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(42, "scroll-abc",
			map[string]interface{}{
				"timestamp_utc": "2026-08-30T10:00:00Z",
				"login_id":      "alice",
				"case_created":  false,
			},
			map[string]interface{}{
				"timestamp_utc":  "2026-08-30T10:05:00Z",
				"login_id":       "bob",
				"event_analyzed": true,
			},
		))
	}))

	page, err := client.SearchCandidates(context.Background(), CandidateQuery{
		Indices:         []string{"wazuh-test-*"},
		Timefield:       "timestamp_utc",
		From:            time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		To:              time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
		TermFilters:     map[string]string{"customer_code": "test"},
		ExcludeFlags:    []string{models.FlagCaseCreated, models.FlagEventAnalyzed},
		Size:            500,
		ScrollKeepAlive: time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, "/wazuh-test-*/_search", capturedPath)
	assert.Equal(t, 42, page.Total)
	assert.Equal(t, "scroll-abc", page.ScrollID)
	require.Len(t, page.Events, 2)

	first := page.Events[0]
	assert.Equal(t, "wazuh-test-001", first.Index)
	assert.Equal(t, "doc-1", first.ID)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), first.Timestamp)
	assert.False(t, first.Flag(models.FlagCaseCreated))
	assert.True(t, page.Events[1].Flag(models.FlagEventAnalyzed))

	// The query must sort ascending on the timefield and exclude processed docs.
	query := capturedBody["query"].(map[string]interface{})["bool"].(map[string]interface{})
	mustNot := query["must_not"].([]interface{})
	assert.Len(t, mustNot, 2)

	sorts := capturedBody["sort"].([]interface{})
	require.Len(t, sorts, 1)
	sortSpec := sorts[0].(map[string]interface{})["timestamp_utc"].(map[string]interface{})
	assert.Equal(t, "asc", sortSpec["order"])
}

func TestSearchCandidatesServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))

	_, err := client.SearchCandidates(context.Background(), CandidateQuery{
		Indices:   []string{"x-*"},
		Timefield: "timestamp_utc",
		Size:      10,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestScroll(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_search/scroll", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(42, "scroll-next",
			map[string]interface{}{"timestamp_utc": "2026-08-30T10:10:00Z"},
		))
	}))

	page, err := client.Scroll(context.Background(), "scroll-abc", time.Minute, "timestamp_utc")
	require.NoError(t, err)
	assert.Equal(t, "scroll-next", page.ScrollID)
	require.Len(t, page.Events, 1)
}

func TestMarkProcessed(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wazuh-test-001/_update/doc-1", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"updated"}`)
	}))

	markers := NewMarkers(client, "https://cases.example.com")
	ok := markers.MarkProcessed(context.Background(),
		models.DocumentRef{Index: "wazuh-test-001", ID: "doc-1"},
		models.FlagEventAnalyzed)
	assert.True(t, ok)

	doc := captured["doc"].(map[string]interface{})
	assert.Equal(t, true, doc[models.FlagEventAnalyzed])
}

func TestAttachCaseReferenceWritesLink(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"updated"}`)
	}))

	markers := NewMarkers(client, "https://cases.example.com/")
	link, ok := markers.AttachCaseReference(context.Background(),
		models.DocumentRef{Index: "wazuh-test-001", ID: "doc-1"},
		1234, models.FlagCaseCreated, models.FlagEventAnalyzed)
	assert.True(t, ok)
	assert.Equal(t, "https://cases.example.com/case/1234", link)

	doc := captured["doc"].(map[string]interface{})
	assert.Equal(t, float64(1234), doc["alert_id"])
	assert.Equal(t, "https://cases.example.com/case/1234", doc["case_url"])
	assert.Equal(t, true, doc[models.FlagCaseCreated])
}

func TestAttachCaseReferenceWriteBlocked(t *testing.T) {
	// First update hits the write block; the markers must lift it, retry
	// once and restore it.
	var sequence []string
	updates := 0

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "_update"):
			updates++
			if updates == 1 {
				sequence = append(sequence, "update-blocked")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"error":{"type":"cluster_block_exception","reason":"index [wazuh-test-001] blocked by: [FORBIDDEN/8/index write (api)]"}}`)
				return
			}
			sequence = append(sequence, "update-ok")
			fmt.Fprint(w, `{"result":"updated"}`)
		case strings.HasSuffix(r.URL.Path, "/_settings"):
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			blocked := body["index"].(map[string]interface{})["blocks"].(map[string]interface{})["write"].(bool)
			sequence = append(sequence, fmt.Sprintf("block=%v", blocked))
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	markers := NewMarkers(client, "https://cases.example.com")
	_, ok := markers.AttachCaseReference(context.Background(),
		models.DocumentRef{Index: "wazuh-test-001", ID: "doc-1"},
		1234, models.FlagCaseCreated)
	assert.True(t, ok)

	assert.Equal(t, []string{"update-blocked", "block=false", "update-ok", "block=true"}, sequence)
}

func TestMarkProcessedOtherErrorNoUnblock(t *testing.T) {
	settingsCalls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/_settings") {
			settingsCalls++
			fmt.Fprint(w, `{"acknowledged":true}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"mapper_parsing_exception"}}`)
	}))

	markers := NewMarkers(client, "https://cases.example.com")
	ok := markers.MarkProcessed(context.Background(),
		models.DocumentRef{Index: "wazuh-test-001", ID: "doc-1"},
		models.FlagEventAnalyzed)
	assert.False(t, ok)
	assert.Zero(t, settingsCalls, "only write-block errors trigger the unblock dance")
}

func TestSetWriteBlock(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/wazuh-test-001/_settings", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{"acknowledged":true}`)
	}))

	require.NoError(t, client.SetWriteBlock(context.Background(), "wazuh-test-001", true))
	blocks := captured["index"].(map[string]interface{})["blocks"].(map[string]interface{})
	assert.Equal(t, true, blocks["write"])
}

func TestParsePageMalformed(t *testing.T) {
	_, err := parsePage(io.NopCloser(strings.NewReader("not json")), "timestamp_utc")
	require.Error(t, err)
}
