// Package fields resolves event attributes through explicit ordered lists of
// candidate field names. Source systems disagree on where they put the same
// datum (timestamp_utc vs @timestamp, process_image vs image); the precedence
// order is a visible contract here rather than a chain of fallback lookups
// scattered through the analyzers.
package fields

import (
	"fmt"
	"strconv"
	"time"

	"github.com/soclabs/copilot/internal/models"
)

// Resolver consults its candidate field names in order and returns the first
// value present on the event.
type Resolver struct {
	Candidates []string
}

// NewResolver builds a resolver over the given candidates.
func NewResolver(candidates ...string) Resolver {
	return Resolver{Candidates: candidates}
}

// ResolveString returns the first candidate present as a non-empty string.
// Numeric scalars are rendered with strconv so a numeric login id still
// resolves.
func (r Resolver) ResolveString(e *models.Event) (string, bool) {
	for _, name := range r.Candidates {
		v, ok := e.Fields[name]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		case int:
			return strconv.Itoa(s), true
		case int64:
			return strconv.FormatInt(s, 10), true
		case bool:
			return strconv.FormatBool(s), true
		}
	}
	return "", false
}

// timestampLayouts are tried in order when a candidate resolves to a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ResolveTime returns the first candidate parseable as a timestamp.
// String values are tried against the known layouts; numeric values are
// treated as epoch seconds (or milliseconds when large enough).
func (r Resolver) ResolveTime(e *models.Event) (time.Time, error) {
	for _, name := range r.Candidates {
		v, ok := e.Fields[name]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			for _, layout := range timestampLayouts {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts, nil
				}
			}
		case float64:
			if t > 1e12 { // epoch millis
				return time.UnixMilli(int64(t)).UTC(), nil
			}
			return time.Unix(int64(t), 0).UTC(), nil
		case time.Time:
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no parseable timestamp in %v: %w", r.Candidates, ErrBadTimestamp)
}

// Standard resolvers shared by the source adapters.
var (
	Timestamp    = NewResolver("timestamp_utc", "timestamp", "@timestamp", "time")
	SourceIP     = NewResolver("ip", "src_ip", "source_ip", "data_srcip")
	Username     = NewResolver("login_id", "user", "username", "data_win_eventdata_targetUserName")
	Hostname     = NewResolver("agent_name", "hostname", "host", "beat_hostname")
	Country      = NewResolver("country", "geo_country", "src_country")
	ProcessImage = NewResolver("process_image", "data_win_eventdata_image", "image")
	CustomerCode = NewResolver("customer_code", "agent_labels_customer", "customer")
	ErrorCode    = NewResolver("error_code", "errCode", "data_errcode")
)
