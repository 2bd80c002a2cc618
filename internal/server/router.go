// Package server provides HTTP server setup for the copilot service.
package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soclabs/copilot/internal/auth"
	"github.com/soclabs/copilot/internal/handlers"
	"github.com/soclabs/copilot/internal/middleware"
)

// NewRouter constructs a ServeMux with the copilot API routes registered.
// When tm is non-nil, exclusion management and analysis triggers require a
// valid bearer token; health and metrics stay open.
func NewRouter(h *handlers.Handler, tm *auth.TokenManager) http.Handler {
	mux := http.NewServeMux()

	// Health and metrics endpoints
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	protect := func(next http.Handler) http.Handler { return next }
	if tm != nil {
		protect = middleware.Auth(tm)
	}

	// Exclusion rule routes
	mux.Handle("/exclusion", protect(http.HandlerFunc(h.ExclusionsHandler)))
	mux.Handle("/exclusion/", protect(exclusionRouteHandler(h)))

	// Analysis routes
	mux.Handle("/analysis", protect(http.HandlerFunc(h.SourcesHandler)))
	mux.Handle("/analysis/", protect(http.HandlerFunc(h.AnalysisHandler)))

	return middleware.RequestID(mux)
}

// exclusionRouteHandler routes /exclusion/{id}/* requests to the right
// handler.
func exclusionRouteHandler(h *handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/toggle"):
			h.ToggleExclusionHandler(w, r)
		default:
			h.ExclusionHandler(w, r)
		}
	}
}
