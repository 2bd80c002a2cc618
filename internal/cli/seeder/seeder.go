// Package seeder generates synthetic security events for exercising the
// analysis pipeline against a live OpenSearch cluster. It writes a mix of
// background noise and attack bursts shaped exactly like the events the
// source adapters look for, so a seeded index will produce firings.
package seeder

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

type Config struct {
	OpenSearchURL string
	Username      string
	Password      string
	Insecure      bool

	Customer   string
	Source     string // wazuh, office365, suricata or sapsiem
	Noise      int    // background events
	Bursts     int    // attack bursts, each ends in a firing condition
	TimeSpread time.Duration
	BatchSize  int
}

type Runner struct {
	cfg    Config
	client *opensearch.Client
	rng    *rand.Rand
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.TimeSpread <= 0 {
		cfg.TimeSpread = time.Hour
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Runner{
		cfg:    cfg,
		client: client,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run generates and bulk-indexes all configured events.
func (r *Runner) Run(ctx context.Context) (int, error) {
	gofakeit.Seed(time.Now().UnixNano())

	gen, index, err := r.generator()
	if err != nil {
		return 0, err
	}

	log.Printf("Seeding %s events for customer %s into %s", r.cfg.Source, r.cfg.Customer, index)
	log.Printf("  noise=%d bursts=%d spread=%v", r.cfg.Noise, r.cfg.Bursts, r.cfg.TimeSpread)

	events := gen.noise(r.cfg.Noise)
	for i := 0; i < r.cfg.Bursts; i++ {
		events = append(events, gen.burst()...)
	}

	total := 0
	for start := 0; start < len(events); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(events) {
			end = len(events)
		}
		n, err := r.bulkIndex(ctx, index, events[start:end])
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (r *Runner) generator() (eventGenerator, string, error) {
	now := time.Now().UTC()
	base := generator{rng: r.rng, customer: r.cfg.Customer, now: now, spread: r.cfg.TimeSpread}

	switch r.cfg.Source {
	case "wazuh":
		return &wazuhGenerator{base}, fmt.Sprintf("wazuh-%s-%s", r.cfg.Customer, now.Format("2006.01.02")), nil
	case "office365":
		return &office365Generator{base}, fmt.Sprintf("office365-%s-%s", r.cfg.Customer, now.Format("2006.01.02")), nil
	case "suricata":
		return &suricataGenerator{base}, fmt.Sprintf("suricata-%s-%s", r.cfg.Customer, now.Format("2006.01.02")), nil
	case "sapsiem":
		return &sapGenerator{base}, fmt.Sprintf("sapsiem-%s-%s", r.cfg.Customer, now.Format("2006.01.02")), nil
	default:
		return nil, "", fmt.Errorf("unknown source %q", r.cfg.Source)
	}
}

func (r *Runner) bulkIndex(ctx context.Context, index string, events []map[string]interface{}) (int, error) {
	var buf bytes.Buffer
	for _, event := range events {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": index}}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return 0, err
		}
		docLine, err := json.Marshal(event)
		if err != nil {
			return 0, err
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{Body: &buf}
	resp, err := req.Do(ctx, r.client)
	if err != nil {
		return 0, fmt.Errorf("bulk index failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("bulk index failed: %s: %s", resp.Status(), body)
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	indexed := len(events)
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Status >= 300 {
					indexed--
				}
			}
		}
	}
	return indexed, nil
}
