package models

import "time"

// Asset is a host/account record attached to a case.
type Asset struct {
	Name             string `json:"name"`
	IP               string `json:"ip,omitempty"`
	Description      string `json:"description,omitempty"`
	Type             string `json:"type,omitempty"`
	CompromiseStatus string `json:"compromise_status,omitempty"`
}

// IOC is an indicator of compromise attached to a case.
type IOC struct {
	Value       string `json:"value"`
	Type        string `json:"type"` // ip, domain, hash, url
	Description string `json:"description,omitempty"`
}

// CasePayload is the create-case request sent to the case-management system.
type CasePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CustomerID  int64    `json:"customer_id"`
	Severity    string   `json:"severity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Assets      []Asset  `json:"assets,omitempty"`
	IOCs        []IOC    `json:"iocs,omitempty"`
}

// CaseSummary is the case-management system's view of a case as returned
// by filter/get calls. Only the fields the pipeline needs are mapped.
type CaseSummary struct {
	ID         int64     `json:"case_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"` // open, closed
	CustomerID int64     `json:"customer_id"`
	Tags       []string  `json:"tags,omitempty"`
	Assets     []Asset   `json:"assets,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CaseStatusOpen is the status value the resolver filters on.
const CaseStatusOpen = "open"
