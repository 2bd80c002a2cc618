package analysis

import (
	"fmt"
	"time"

	"github.com/soclabs/copilot/internal/correlation"
	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/search"
)

// SuricataAdapter flags source IPs that trip many distinct IDS signatures
// inside one window, a scanning/probing pattern.
type SuricataAdapter struct {
	SignatureThreshold int
}

func (a *SuricataAdapter) Name() string { return "suricata" }
func (a *SuricataAdapter) Tag() string  { return "copilot_suricata" }

var suricataSignature = fields.NewResolver("alert_signature", "signature", "alert_signature_id")

func (a *SuricataAdapter) Candidates(settings *models.CustomerAlertSettings, from, to time.Time, size int) search.CandidateQuery {
	return search.CandidateQuery{
		Indices:   []string{fmt.Sprintf("suricata-%s-*", settings.CustomerCode)},
		Timefield: timefield(settings),
		From:      from,
		To:        to,
		TermFilters: map[string]string{
			"customer_code": settings.CustomerCode,
			"event_type":    "alert",
		},
		ExcludeFlags:    []string{models.FlagCaseCreated, models.FlagEventAnalyzed, models.FlagEventExcluded},
		Size:            size,
		ScrollKeepAlive: 2 * time.Minute,
	}
}

func (a *SuricataAdapter) Rules() []correlation.Rule {
	return []correlation.Rule{
		&correlation.DistinctValuesRule{
			RuleName:  "suricata_signature_spread",
			Threshold: a.SignatureThreshold,
			Key:       fields.SourceIP.ResolveString,
			Value:     suricataSignature.ResolveString,
		},
	}
}

func (a *SuricataAdapter) CaseTitle(se *models.SuspiciousEvent) string {
	return fmt.Sprintf("IDS signature spread from %s", se.Key)
}

func (a *SuricataAdapter) CaseDescription(se *models.SuspiciousEvent, settings *models.CustomerAlertSettings) string {
	desc := fmt.Sprintf(
		"Source IP %s triggered %v distinct IDS signatures within the analysis window, last one at %s.",
		se.Key, se.Details["distinct_count"], se.Event.Timestamp.UTC().Format(time.RFC3339))
	if settings.DashboardURL != "" {
		desc += fmt.Sprintf("\n\nDashboard: %s", settings.DashboardURL)
	}
	return desc
}

func (a *SuricataAdapter) Asset(se *models.SuspiciousEvent) models.Asset {
	return models.Asset{
		Name:             se.Key,
		IP:               se.Key,
		Type:             "external_host",
		Description:      fmt.Sprintf("Flagged by rule %s", se.RuleName),
		CompromiseStatus: "unknown",
	}
}

func (a *SuricataAdapter) IOCCandidates(se *models.SuspiciousEvent) []string {
	return []string{se.Key}
}

func (a *SuricataAdapter) Severity() string { return "medium" }
