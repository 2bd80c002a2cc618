// Package notify delivers case notifications to customer automation hooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notification describes one case lifecycle event.
type Notification struct {
	Kind         string    `json:"kind"` // case_created, case_updated
	Source       string    `json:"source"`
	Customer     string    `json:"customer"`
	CaseID       int64     `json:"case_id"`
	CaseURL      string    `json:"case_url,omitempty"`
	Title        string    `json:"title"`
	DashboardURL string    `json:"dashboard_url,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Channel delivers a notification somewhere.
type Channel interface {
	Send(ctx context.Context, n *Notification) error
	Type() string
}

// WebhookChannel POSTs notifications to a customer automation endpoint.
type WebhookChannel struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

// NewWebhookChannel creates a webhook notification channel.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		URL:     url,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (w *WebhookChannel) Type() string {
	return "webhook"
}

func (w *WebhookChannel) Send(ctx context.Context, n *Notification) error {
	jsonData, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CoPilot/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogChannel writes notifications to logs. Used when a customer has no
// webhook configured.
type LogChannel struct {
	logger func(format string, v ...interface{})
}

// NewLogChannel creates a log-based notification channel.
func NewLogChannel(logger func(format string, v ...interface{})) *LogChannel {
	if logger == nil {
		logger = log.Printf
	}
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Send(ctx context.Context, n *Notification) error {
	l.logger("CASE %s: %s (case=%d, customer=%s, source=%s)",
		n.Kind, n.Title, n.CaseID, n.Customer, n.Source)
	return nil
}

// MultiChannel fans a notification out to several channels; it fails only
// when every channel fails.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel combines channels.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	return &MultiChannel{channels: channels}
}

func (m *MultiChannel) Type() string {
	return "multi"
}

func (m *MultiChannel) Send(ctx context.Context, n *Notification) error {
	var lastErr error
	successCount := 0

	for _, ch := range m.channels {
		if err := ch.Send(ctx, n); err != nil {
			lastErr = fmt.Errorf("%s channel failed: %w", ch.Type(), err)
		} else {
			successCount++
		}
	}

	if successCount == 0 && len(m.channels) > 0 {
		return fmt.Errorf("all notification channels failed: %w", lastErr)
	}
	return nil
}
