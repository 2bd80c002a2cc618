// Package shipper pushes pipeline output onto the message bus.
package shipper

import (
	"context"
	"log"
	"time"

	"github.com/soclabs/copilot/internal/messaging"
	"github.com/soclabs/copilot/internal/models"
)

// Publisher ships case lifecycle events and normalized suspicious events to
// NATS. Bus failures are logged, never propagated; the bus is a convenience
// surface and must not fail an analysis pass.
type Publisher struct {
	bus messaging.Publisher
}

// NewPublisher wraps a bus connection. A nil bus disables shipping.
func NewPublisher(bus messaging.Publisher) *Publisher {
	return &Publisher{bus: bus}
}

type caseEvent struct {
	CaseID    int64     `json:"case_id"`
	Source    string    `json:"source"`
	Customer  string    `json:"customer"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

type suspiciousEvent struct {
	Source    string                 `json:"source"`
	Customer  string                 `json:"customer"`
	RuleName  string                 `json:"rule_name"`
	Key       string                 `json:"key"`
	Index     string                 `json:"index"`
	DocID     string                 `json:"doc_id"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// CaseCreated announces a newly opened case.
func (p *Publisher) CaseCreated(ctx context.Context, caseID int64, source, customer, title string) {
	p.publish(ctx, messaging.SubjectCaseCreated, caseEvent{
		CaseID:    caseID,
		Source:    source,
		Customer:  customer,
		Title:     title,
		Timestamp: time.Now().UTC(),
	})
}

// CaseUpdated announces an existing case picking up a new asset.
func (p *Publisher) CaseUpdated(ctx context.Context, caseID int64, source, customer, title string) {
	p.publish(ctx, messaging.SubjectCaseUpdated, caseEvent{
		CaseID:    caseID,
		Source:    source,
		Customer:  customer,
		Title:     title,
		Timestamp: time.Now().UTC(),
	})
}

// Suspicious ships a normalized suspicious event.
func (p *Publisher) Suspicious(ctx context.Context, source, customer string, se models.SuspiciousEvent) {
	p.publish(ctx, messaging.SubjectEventSuspicious, suspiciousEvent{
		Source:    source,
		Customer:  customer,
		RuleName:  se.RuleName,
		Key:       se.Key,
		Index:     se.Event.Index,
		DocID:     se.Event.ID,
		Timestamp: se.Event.Timestamp,
		Details:   se.Details,
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, payload interface{}) {
	if p.bus == nil {
		return
	}
	if err := p.bus.PublishJSON(ctx, subject, payload); err != nil {
		log.Printf("failed to publish %s: %v", subject, err)
	}
}
