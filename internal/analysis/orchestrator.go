package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/soclabs/copilot/internal/cases"
	"github.com/soclabs/copilot/internal/exclusion"
	"github.com/soclabs/copilot/internal/locks"
	"github.com/soclabs/copilot/internal/metrics"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/notify"
	"github.com/soclabs/copilot/internal/repository"
	"github.com/soclabs/copilot/internal/search"
	"github.com/soclabs/copilot/internal/shipper"
)

// EventSearcher is the slice of the search client the orchestrator uses.
type EventSearcher interface {
	SearchCandidates(ctx context.Context, q search.CandidateQuery) (*search.Page, error)
	Scroll(ctx context.Context, scrollID string, keepAlive time.Duration, timefield string) (*search.Page, error)
	ClearScroll(ctx context.Context, scrollID string) error
}

// MarkerStore writes idempotency flags back onto source documents.
type MarkerStore interface {
	MarkProcessed(ctx context.Context, ref models.DocumentRef, flags ...string) bool
	AttachCaseReference(ctx context.Context, ref models.DocumentRef, caseID int64, flags ...string) (caseURL string, ok bool)
}

// CaseResolver finds the open case a firing should land in.
type CaseResolver interface {
	FindOpenCase(ctx context.Context, tag string, customerID int64) (*models.CaseSummary, error)
}

// CaseBuilder opens cases and appends assets.
type CaseBuilder interface {
	CreateCase(ctx context.Context, spec cases.CaseSpec) (*models.CaseSummary, error)
	AppendAsset(ctx context.Context, caseID int64, asset models.Asset) (bool, error)
}

// Locker serializes passes per (customer, tag).
type Locker interface {
	Acquire(ctx context.Context, customer, tag string, ttl time.Duration) (func(), error)
}

// Options bound one analysis pass.
type Options struct {
	// BatchSize is the page size for candidate fetches.
	BatchSize int
	// MaxPages caps how many pages one pass consumes; the rest waits for
	// the next pass.
	MaxPages int
	// Lookback is the time window queried, ending now.
	Lookback time.Duration
	// WorkerBatch is how many customers RunAll processes concurrently.
	WorkerBatch int
	// LockTTL bounds how long a crashed pass holds its run lock.
	LockTTL time.Duration
	// MarkExcluded controls whether excluded events get a persistent
	// event_excluded marker or are simply dropped for this pass.
	MarkExcluded bool
}

// DefaultOptions mirror the config defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:    500,
		MaxPages:     10,
		Lookback:     24 * time.Hour,
		WorkerBatch:  10,
		LockTTL:      15 * time.Minute,
		MarkExcluded: false,
	}
}

// Orchestrator drives the full pipeline for one source adapter at a time.
type Orchestrator struct {
	searcher EventSearcher
	markers  MarkerStore
	repo     repository.Repository
	resolver CaseResolver
	builder  CaseBuilder
	locker   Locker
	ship     *shipper.Publisher
	opts     Options

	// newNotifier builds the per-customer notification channel. Replaced
	// in tests.
	newNotifier func(settings *models.CustomerAlertSettings) notify.Channel

	// now is replaced in tests for a stable window.
	now func() time.Time
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(
	searcher EventSearcher,
	markers MarkerStore,
	repo repository.Repository,
	resolver CaseResolver,
	builder CaseBuilder,
	locker Locker,
	ship *shipper.Publisher,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		markers:  markers,
		repo:     repo,
		resolver: resolver,
		builder:  builder,
		locker:   locker,
		ship:     ship,
		opts:     opts,
		newNotifier: func(settings *models.CustomerAlertSettings) notify.Channel {
			if settings.WebhookURL != "" {
				return notify.NewWebhookChannel(settings.WebhookURL, 10*time.Second)
			}
			return notify.NewLogChannel(nil)
		},
		now: time.Now,
	}
}

// Run executes one pass for one customer. Per-event failures are collected
// on the report; only failures that prevent the pass from running at all
// (settings lookup, lock contention, the initial fetch) are returned as
// errors.
func (o *Orchestrator) Run(ctx context.Context, adapter SourceAdapter, customer string) (*models.AnalysisReport, error) {
	started := o.now()
	report := &models.AnalysisReport{Source: adapter.Name(), Customer: customer}

	settings, err := o.repo.GetCustomerAlertSettings(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert settings for %s: %w", customer, err)
	}

	release, err := o.locker.Acquire(ctx, customer, adapter.Tag(), o.opts.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrLockHeld) {
			report.Message = "analysis already in progress"
			metrics.PassesTotal.WithLabelValues(adapter.Name(), customer, "contended").Inc()
			return report, nil
		}
		return nil, err
	}
	defer release()

	ruleRows, _, err := o.repo.ListRules(ctx, &models.ListExclusionRulesRequest{Limit: 1000, EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusion rules: %w", err)
	}
	filter := exclusion.NewFilter(ruleRows, o.repo)

	to := o.now().UTC()
	from := to.Add(-o.opts.Lookback)
	query := adapter.Candidates(settings, from, to, o.opts.BatchSize)

	page, err := o.searcher.SearchCandidates(ctx, query)
	if err != nil {
		metrics.PassesTotal.WithLabelValues(adapter.Name(), customer, "error").Inc()
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	defer func() {
		if page != nil && page.ScrollID != "" {
			if err := o.searcher.ClearScroll(context.WithoutCancel(ctx), page.ScrollID); err != nil {
				log.Printf("analysis: failed to clear scroll: %v", err)
			}
		}
	}()

	total := page.Total
	processed := 0
	notifier := o.newNotifier(settings)

	for batch := 0; batch < o.opts.MaxPages && len(page.Events) > 0; batch++ {
		o.processPage(ctx, adapter, settings, filter, notifier, page.Events, report)
		processed += len(page.Events)
		report.BatchesProcessed++

		if len(page.Events) < o.opts.BatchSize || page.ScrollID == "" {
			break
		}
		page, err = o.searcher.Scroll(ctx, page.ScrollID, query.ScrollKeepAlive, query.Timefield)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("scroll failed: %v", err))
			break
		}
	}

	report.AlertsRemaining = total - processed
	if report.AlertsRemaining < 0 {
		report.AlertsRemaining = 0
	}
	report.Success = true
	report.Message = fmt.Sprintf("processed %d of %d candidate events", processed, total)

	metrics.EventsFetched.WithLabelValues(adapter.Name(), customer).Add(float64(processed))
	metrics.PassDuration.WithLabelValues(adapter.Name()).Observe(o.now().Sub(started).Seconds())
	metrics.PassesTotal.WithLabelValues(adapter.Name(), customer, "ok").Inc()
	return report, nil
}

// processPage runs one page through exclusion, correlation and case
// handling, then marks every surviving event analyzed.
func (o *Orchestrator) processPage(
	ctx context.Context,
	adapter SourceAdapter,
	settings *models.CustomerAlertSettings,
	filter *exclusion.Filter,
	notifier notify.Channel,
	events []models.Event,
	report *models.AnalysisReport,
) {
	kept := make([]models.Event, 0, len(events))
	for i := range events {
		if filter.ShouldExclude(ctx, &events[i]) {
			o.account(report, adapter, settings, models.Outcome{Kind: models.OutcomeExcluded})
			if o.opts.MarkExcluded {
				if !o.markers.MarkProcessed(ctx, events[i].Ref(), models.FlagEventExcluded) {
					metrics.MarkerFailures.Inc()
				}
			}
			continue
		}
		kept = append(kept, events[i])
	}

	var firings []models.SuspiciousEvent
	for _, rule := range adapter.Rules() {
		firings = append(firings, rule.Correlate(kept)...)
	}
	if stateful, ok := adapter.(StatefulAdapter); ok {
		firings = stateful.FilterFirings(ctx, firings)
	}

	flagged := make(map[string]bool, len(firings))
	// Evidence of firings whose case step failed stays unmarked; the next
	// pass must see the full accumulation again to retry the detection.
	retained := make(map[string]bool)
	for i := range firings {
		se := &firings[i]
		flagged[se.Event.ID] = true
		o.ship.Suspicious(ctx, adapter.Name(), settings.CustomerCode, *se)

		outcome := o.handleFiring(ctx, adapter, settings, notifier, se)
		o.account(report, adapter, settings, outcome)
		if outcome.Kind == models.OutcomeFailed {
			for _, id := range se.Evidence {
				retained[id] = true
			}
		}
	}

	// Every event that survived exclusion, did not open a case and is not
	// held back as failed-firing evidence is marked analyzed so the next
	// pass skips it.
	for i := range kept {
		if flagged[kept[i].ID] || retained[kept[i].ID] {
			continue
		}
		if !o.markers.MarkProcessed(ctx, kept[i].Ref(), models.FlagEventAnalyzed) {
			metrics.MarkerFailures.Inc()
		}
	}
}

// account folds one outcome into the report counters and metrics.
func (o *Orchestrator) account(report *models.AnalysisReport, adapter SourceAdapter, settings *models.CustomerAlertSettings, outcome models.Outcome) {
	switch outcome.Kind {
	case models.OutcomeCreated:
		report.AlertsCreated++
		metrics.CasesCreated.WithLabelValues(adapter.Name(), settings.CustomerCode).Inc()
	case models.OutcomeUpdated:
		report.AlertsUpdated++
		metrics.CasesUpdated.WithLabelValues(adapter.Name(), settings.CustomerCode).Inc()
	case models.OutcomeExcluded:
		report.EventsExcluded++
		metrics.EventsExcluded.WithLabelValues(adapter.Name(), settings.CustomerCode).Inc()
	case models.OutcomeSkipped:
		report.AlertsSkipped++
	case models.OutcomeFailed:
		report.AlertsFailed++
		metrics.CaseFailures.WithLabelValues(adapter.Name(), settings.CustomerCode).Inc()
		if outcome.Err != nil {
			report.Errors = append(report.Errors, outcome.Err.Error())
		}
	}
}

// handleFiring resolves one suspicious event into a case outcome.
func (o *Orchestrator) handleFiring(
	ctx context.Context,
	adapter SourceAdapter,
	settings *models.CustomerAlertSettings,
	notifier notify.Channel,
	se *models.SuspiciousEvent,
) models.Outcome {
	open, err := o.resolver.FindOpenCase(ctx, adapter.Tag(), settings.CaseCustomerID)
	if err != nil {
		return models.Outcome{Kind: models.OutcomeFailed, Err: fmt.Errorf("resolve case for %s: %w", se.Key, err)}
	}

	if open != nil {
		changed, err := o.builder.AppendAsset(ctx, open.ID, adapter.Asset(se))
		if err != nil {
			return models.Outcome{Kind: models.OutcomeFailed, Err: fmt.Errorf("append asset to case %d: %w", open.ID, err)}
		}
		if !changed {
			// The open case already records this asset. Consume the event
			// without notifying the customer again.
			if _, ok := o.markers.AttachCaseReference(ctx, se.Event.Ref(), open.ID, models.FlagCaseCreated, models.FlagEventAnalyzed); !ok {
				metrics.MarkerFailures.Inc()
			}
			return models.Outcome{Kind: models.OutcomeSkipped, CaseID: open.ID, Reason: "asset already recorded"}
		}
		o.finishFiring(ctx, adapter, settings, notifier, se, open.ID, open.Title, "case_updated")
		o.ship.CaseUpdated(ctx, open.ID, adapter.Name(), settings.CustomerCode, open.Title)
		return models.Outcome{Kind: models.OutcomeUpdated, CaseID: open.ID}
	}

	spec := cases.CaseSpec{
		Title:         adapter.CaseTitle(se),
		Description:   adapter.CaseDescription(se, settings),
		Tag:           adapter.Tag(),
		CustomerID:    settings.CaseCustomerID,
		Severity:      adapter.Severity(),
		Asset:         adapter.Asset(se),
		IOCCandidates: adapter.IOCCandidates(se),
	}
	created, err := o.builder.CreateCase(ctx, spec)
	if err != nil {
		return models.Outcome{Kind: models.OutcomeFailed, Err: fmt.Errorf("create case for %s: %w", se.Key, err)}
	}
	o.finishFiring(ctx, adapter, settings, notifier, se, created.ID, spec.Title, "case_created")
	o.ship.CaseCreated(ctx, created.ID, adapter.Name(), settings.CustomerCode, spec.Title)
	return models.Outcome{Kind: models.OutcomeCreated, CaseID: created.ID}
}

// finishFiring attaches the case reference to the source document and sends
// the customer notification. Both are best-effort.
func (o *Orchestrator) finishFiring(
	ctx context.Context,
	adapter SourceAdapter,
	settings *models.CustomerAlertSettings,
	notifier notify.Channel,
	se *models.SuspiciousEvent,
	caseID int64,
	title string,
	kind string,
) {
	caseURL, ok := o.markers.AttachCaseReference(ctx, se.Event.Ref(), caseID, models.FlagCaseCreated, models.FlagEventAnalyzed)
	if !ok {
		metrics.MarkerFailures.Inc()
	}

	n := &notify.Notification{
		Kind:         kind,
		Source:       adapter.Name(),
		Customer:     settings.CustomerCode,
		CaseID:       caseID,
		CaseURL:      caseURL,
		Title:        title,
		DashboardURL: settings.DashboardURL,
		Timestamp:    o.now().UTC(),
	}
	if err := notifier.Send(ctx, n); err != nil {
		log.Printf("analysis: notification failed for case %d: %v", caseID, err)
	}
}

// RunAll fans one source out across every customer with alert settings,
// processing them in fixed-size concurrent batches. One customer failing
// never stops the others.
func (o *Orchestrator) RunAll(ctx context.Context, adapter SourceAdapter) []*models.AnalysisReport {
	customers, err := o.repo.ListCustomerCodes(ctx)
	if err != nil {
		log.Printf("analysis: failed to list customers: %v", err)
		return nil
	}

	batchSize := o.opts.WorkerBatch
	if batchSize <= 0 {
		batchSize = 10
	}

	reports := make([]*models.AnalysisReport, len(customers))
	for start := 0; start < len(customers); start += batchSize {
		end := start + batchSize
		if end > len(customers) {
			end = len(customers)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				customer := customers[i]
				report, err := o.Run(ctx, adapter, customer)
				if err != nil {
					log.Printf("analysis: %s pass failed for %s: %v", adapter.Name(), customer, err)
					report = &models.AnalysisReport{
						Source:   adapter.Name(),
						Customer: customer,
						Message:  err.Error(),
					}
				}
				reports[i] = report
			}(i)
		}
		wg.Wait()
	}
	return reports
}
