// Package handlers implements the admin HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/soclabs/copilot/internal/analysis"
	"github.com/soclabs/copilot/internal/httputil"
	"github.com/soclabs/copilot/internal/middleware"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/repository"
	"github.com/soclabs/copilot/internal/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ExclusionsHandler handles /exclusion (create + list)
func (h *Handler) ExclusionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createExclusion(w, r)
	case http.MethodGet:
		h.listExclusions(w, r)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createExclusion(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExclusionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	createdBy := "api"
	if claims := claimsSubject(r); claims != "" {
		createdBy = claims
	}

	rule, err := h.service.CreateExclusionRule(r.Context(), &req, createdBy)
	if err != nil {
		if errors.Is(err, service.ErrDegenerateRule) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) listExclusions(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 1000)
	req := &models.ListExclusionRulesRequest{
		Skip:        p.Skip,
		Limit:       p.Limit,
		EnabledOnly: r.URL.Query().Get("enabled_only") == "true",
	}

	rules, total, err := h.service.ListExclusionRules(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"total": total,
		"skip":  req.Skip,
		"limit": req.Limit,
	})
}

// ExclusionHandler handles /exclusion/{id} (get + update + delete)
func (h *Handler) ExclusionHandler(w http.ResponseWriter, r *http.Request) {
	id := exclusionID(r.URL.Path)
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getExclusion(w, r, id)
	case http.MethodPatch:
		h.updateExclusion(w, r, id)
	case http.MethodDelete:
		h.deleteExclusion(w, r, id)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) getExclusion(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.service.GetExclusionRule(r.Context(), id)
	if err != nil {
		writeRuleError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) updateExclusion(w http.ResponseWriter, r *http.Request, id string) {
	var req models.UpdateExclusionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rule, err := h.service.UpdateExclusionRule(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrDegenerateRule) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeRuleError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) deleteExclusion(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.DeleteExclusionRule(r.Context(), id); err != nil {
		writeRuleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleExclusionHandler handles POST /exclusion/{id}/toggle
func (h *Handler) ToggleExclusionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := exclusionID(strings.TrimSuffix(r.URL.Path, "/toggle"))
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	rule, err := h.service.ToggleExclusionRule(r.Context(), id)
	if err != nil {
		writeRuleError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

// AnalysisHandler handles POST /analysis/{source}
func (h *Handler) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	source := strings.TrimPrefix(r.URL.Path, "/analysis/")
	if source == "" || strings.Contains(source, "/") {
		httputil.WriteError(w, http.StatusBadRequest, "missing source name")
		return
	}

	customer := r.URL.Query().Get("customer")
	reports, err := h.service.RunAnalysis(r.Context(), source, customer)
	if err != nil {
		if errors.Is(err, analysis.ErrUnknownSource) || errors.Is(err, repository.ErrCustomerNotFound) {
			httputil.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source":  source,
		"reports": reports,
	})
}

// SourcesHandler handles GET /analysis
func (h *Handler) SourcesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources": h.service.Sources(),
	})
}

func writeRuleError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrRuleNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "rule not found")
		return
	}
	httputil.WriteError(w, http.StatusInternalServerError, "rule store error")
}

// claimsSubject returns the authenticated subject, if any.
func claimsSubject(r *http.Request) string {
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

// exclusionID extracts the {id} segment from /exclusion/{id}.
func exclusionID(path string) string {
	id := strings.TrimPrefix(path, "/exclusion/")
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
