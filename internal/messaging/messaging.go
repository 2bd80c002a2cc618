// Package messaging publishes pipeline events onto the NATS bus so
// downstream services (dashboards, SOAR playbooks) can react to case
// activity without polling.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects emitted by the analysis pipeline.
const (
	SubjectCaseCreated     = "copilot.cases.created"
	SubjectCaseUpdated     = "copilot.cases.updated"
	SubjectEventSuspicious = "copilot.events.suspicious"
)

// Publisher is the outbound half of the bus used by the shipper.
type Publisher interface {
	PublishJSON(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "copilot",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Client implements Publisher over a core NATS connection.
type Client struct {
	conn *nats.Conn
}

// NewClient connects to NATS with reconnect handling.
func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn}, nil
}

// PublishJSON marshals data and publishes it to the subject.
func (c *Client) PublishJSON(ctx context.Context, subject string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Close drains the connection, letting in-flight publishes finish.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}
