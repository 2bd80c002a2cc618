// Package httputil holds shared JSON response helpers for the API handlers.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// WriteJSON writes a JSON response with the given status code and data.
// It properly checks for encoding errors and logs them.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// Pagination holds the skip/limit pair parsed from list query strings.
type Pagination struct {
	Skip  int
	Limit int
}

// ParsePagination reads skip and limit query params with bounds applied.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	p := Pagination{Limit: defaultLimit}

	if v := r.URL.Query().Get("skip"); v != "" {
		if skip, err := strconv.Atoi(v); err == nil && skip >= 0 {
			p.Skip = skip
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			p.Limit = limit
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
