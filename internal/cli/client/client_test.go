package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/copilot/internal/models"
)

func TestListExclusions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/exclusion", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("enabled_only"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"rules": []models.ExclusionRule{{ID: "rule-1", Name: "noise"}},
			"total": 1,
			"skip":  0,
			"limit": 50,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	resp, err := c.ListExclusions(0, 50, true)
	require.NoError(t, err)
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "rule-1", resp.Rules[0].ID)
	assert.Equal(t, int64(1), resp.Total)
}

func TestCreateExclusionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "exclusion rule must set a channel, a title or at least one field match",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.CreateExclusion(&models.CreateExclusionRuleRequest{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must set a channel")
}

func TestDeleteExclusion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/exclusion/rule-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	require.NoError(t, c.DeleteExclusion("rule-1"))
}

func TestRunAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analysis/wazuh", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("customer"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"source": "wazuh",
			"reports": []*models.AnalysisReport{
				{Source: "wazuh", Customer: "acme", Success: true, AlertsCreated: 1},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	resp, err := c.RunAnalysis("wazuh", "acme")
	require.NoError(t, err)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, 1, resp.Reports[0].AlertsCreated)
}
