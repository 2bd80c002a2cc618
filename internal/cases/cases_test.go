package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/copilot/internal/models"
)

func TestAddCase(t *testing.T) {
	var captured models.CasePayload
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cases", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"case_id":77,"title":"Brute force against web-01","status":"open","customer_id":12}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	created, err := client.AddCase(context.Background(), models.CasePayload{
		Title:      "Brute force against web-01",
		CustomerID: 12,
		Tags:       []string{"copilot_wazuh"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), created.ID)
	assert.Equal(t, "Bearer secret-key", auth)
	assert.Equal(t, []string{"copilot_wazuh"}, captured.Tags)
}

func TestGetCaseNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	_, err := client.GetCase(context.Background(), 999)
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestFilterCasesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "copilot_wazuh", q.Get("tag"))
		assert.Equal(t, "12", q.Get("customer_id"))
		assert.Equal(t, "open", q.Get("status"))
		fmt.Fprint(w, `{"cases":[{"case_id":5,"status":"open","customer_id":12}],"total":1}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	found, err := client.FilterCases(context.Background(), "copilot_wazuh", 12, models.CaseStatusOpen)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(5), found[0].ID)
}

func TestFindOpenCasePicksOldest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cases":[
			{"case_id":9,"status":"open","customer_id":12,"created_at":"2026-08-29T12:00:00Z"},
			{"case_id":4,"status":"open","customer_id":12,"created_at":"2026-08-28T08:00:00Z"}
		],"total":2}`)
	}))
	defer server.Close()

	resolver := NewResolver(NewClient(server.URL, "k"))
	open, err := resolver.FindOpenCase(context.Background(), "copilot_wazuh", 12)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, int64(4), open.ID)
}

func TestFindOpenCaseNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cases":[],"total":0}`)
	}))
	defer server.Close()

	resolver := NewResolver(NewClient(server.URL, "k"))
	open, err := resolver.FindOpenCase(context.Background(), "copilot_wazuh", 12)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestCreateCaseDetectsSingleIOC(t *testing.T) {
	var captured models.CasePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"case_id":8,"status":"open"}`)
	}))
	defer server.Close()

	builder := NewBuilder(NewClient(server.URL, "k"))
	_, err := builder.CreateCase(context.Background(), CaseSpec{
		Title:      "Suspicious logins",
		CustomerID: 3,
		Tag:        "copilot_sapsiem",
		Asset:      models.Asset{Name: "sap-prd"},
		// "alice" is not an indicator; both addresses are, only the first sticks.
		IOCCandidates: []string{"alice", "203.0.113.7", "198.51.100.2"},
	})
	require.NoError(t, err)

	require.Len(t, captured.IOCs, 1)
	assert.Equal(t, "203.0.113.7", captured.IOCs[0].Value)
	assert.Equal(t, "ip", captured.IOCs[0].Type)
	require.Len(t, captured.Assets, 1)
}

func TestAppendAssetMerge(t *testing.T) {
	stored := []models.Asset{
		{Name: "web-01", IP: "10.0.0.1", CompromiseStatus: "unknown"},
	}
	var patched map[string]interface{}
	addAssetCalls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			out, _ := json.Marshal(models.CaseSummary{
				ID: 7, Status: "open", Assets: stored, CreatedAt: time.Now(),
			})
			w.Write(out)
		case r.Method == http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost:
			addAssetCalls++
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	builder := NewBuilder(NewClient(server.URL, "k"))
	ctx := context.Background()

	// Identical record is a no-op.
	changed, err := builder.AppendAsset(ctx, 7, models.Asset{Name: "web-01", IP: "10.0.0.1", CompromiseStatus: "unknown"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, addAssetCalls)

	// Same name with new content replaces the stored record.
	changed, err = builder.AppendAsset(ctx, 7, models.Asset{Name: "web-01", IP: "10.0.0.1", CompromiseStatus: "compromised"})
	require.NoError(t, err)
	assert.True(t, changed)
	merged := patched["assets"].([]interface{})
	require.Len(t, merged, 1)
	assert.Equal(t, "compromised", merged[0].(map[string]interface{})["compromise_status"])

	// A new name is appended through the asset endpoint.
	changed, err = builder.AppendAsset(ctx, 7, models.Asset{Name: "db-02", IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, addAssetCalls)
}
