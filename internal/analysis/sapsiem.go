package analysis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/soclabs/copilot/internal/correlation"
	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/search"
)

// SAPSiemAdapter watches SAP security audit logs for two patterns:
// geographically divergent logins per account, and one source IP logging in
// as many distinct accounts. For the second pattern an IP that already
// produced a case is remembered in shared pass state so overlapping windows
// do not raise it again.
type SAPSiemAdapter struct {
	DistinctUserThreshold int
	State                 *PassState
}

const sapCheckedIPScope = "sapsiem:checked_ips"

func (a *SAPSiemAdapter) Name() string { return "sapsiem" }
func (a *SAPSiemAdapter) Tag() string  { return "copilot_sapsiem" }

var sapLoginID = fields.NewResolver("login_id", "user", "account")

func (a *SAPSiemAdapter) Candidates(settings *models.CustomerAlertSettings, from, to time.Time, size int) search.CandidateQuery {
	return search.CandidateQuery{
		Indices:   []string{fmt.Sprintf("sapsiem-%s-*", settings.CustomerCode)},
		Timefield: timefield(settings),
		From:      from,
		To:        to,
		TermFilters: map[string]string{
			"customer_code": settings.CustomerCode,
		},
		ExcludeFlags:    []string{models.FlagCaseCreated, models.FlagEventAnalyzed, models.FlagEventExcluded},
		Size:            size,
		ScrollKeepAlive: 2 * time.Minute,
	}
}

// sapStatus reads the audit log error code: "0" is a successful logon,
// anything else is a failure.
func sapStatus(e *models.Event) correlation.Status {
	code, ok := fields.ErrorCode.ResolveString(e)
	if !ok {
		return correlation.StatusOther
	}
	if code == "0" {
		return correlation.StatusSuccess
	}
	return correlation.StatusFailure
}

const sapMultiLoginRule = "sapsiem_multi_account_ip"

func (a *SAPSiemAdapter) Rules() []correlation.Rule {
	return []correlation.Rule{
		&correlation.GeoDivergenceRule{
			RuleName: "sapsiem_geo_divergence",
			Key:      sapLoginID.ResolveString,
			Country:  fields.Country.ResolveString,
			Status:   sapStatus,
		},
		&correlation.DistinctValuesRule{
			RuleName:    sapMultiLoginRule,
			Threshold:   a.DistinctUserThreshold,
			Key:         fields.SourceIP.ResolveString,
			Value:       sapLoginID.ResolveString,
			Status:      sapStatus,
			CountStatus: correlation.StatusSuccess,
		},
	}
}

// FilterFirings drops multi-account firings for IPs already raised in a
// previous pass, and records the IPs that survive. State failures fall open:
// a Redis outage must not suppress detections.
func (a *SAPSiemAdapter) FilterFirings(ctx context.Context, firings []models.SuspiciousEvent) []models.SuspiciousEvent {
	if a.State == nil {
		return firings
	}
	kept := firings[:0]
	for _, se := range firings {
		if se.RuleName != sapMultiLoginRule {
			kept = append(kept, se)
			continue
		}
		seen, err := a.State.Seen(ctx, sapCheckedIPScope, se.Key)
		if err != nil {
			log.Printf("sapsiem: pass state lookup failed for %s: %v", se.Key, err)
			kept = append(kept, se)
			continue
		}
		if seen {
			continue
		}
		if err := a.State.Record(ctx, sapCheckedIPScope, se.Key); err != nil {
			log.Printf("sapsiem: pass state record failed for %s: %v", se.Key, err)
		}
		kept = append(kept, se)
	}
	return kept
}

func (a *SAPSiemAdapter) CaseTitle(se *models.SuspiciousEvent) string {
	if se.RuleName == sapMultiLoginRule {
		return fmt.Sprintf("Multiple SAP accounts used from %s", se.Key)
	}
	return fmt.Sprintf("Geographically divergent SAP login for %s", se.Key)
}

func (a *SAPSiemAdapter) CaseDescription(se *models.SuspiciousEvent, settings *models.CustomerAlertSettings) string {
	var desc string
	if se.RuleName == sapMultiLoginRule {
		desc = fmt.Sprintf(
			"Source IP %s logged in successfully as %v distinct SAP accounts within the analysis window.",
			se.Key, se.Details["distinct_count"])
	} else {
		desc = fmt.Sprintf(
			"Account %s logged in from %v after failed attempts from %v.",
			se.Key, se.Details["success_country"], se.Details["failed_countries"])
	}
	if settings.DashboardURL != "" {
		desc += fmt.Sprintf("\n\nDashboard: %s", settings.DashboardURL)
	}
	return desc
}

func (a *SAPSiemAdapter) Asset(se *models.SuspiciousEvent) models.Asset {
	if se.RuleName == sapMultiLoginRule {
		return models.Asset{
			Name:             se.Key,
			IP:               se.Key,
			Type:             "external_host",
			Description:      fmt.Sprintf("Flagged by rule %s", se.RuleName),
			CompromiseStatus: "unknown",
		}
	}
	ip, _ := fields.SourceIP.ResolveString(&se.Event)
	return models.Asset{
		Name:             se.Key,
		IP:               ip,
		Type:             "account",
		Description:      fmt.Sprintf("Flagged by rule %s", se.RuleName),
		CompromiseStatus: "suspected",
	}
}

func (a *SAPSiemAdapter) IOCCandidates(se *models.SuspiciousEvent) []string {
	candidates := []string{}
	if ip, ok := fields.SourceIP.ResolveString(&se.Event); ok {
		candidates = append(candidates, ip)
	}
	return candidates
}

func (a *SAPSiemAdapter) Severity() string { return "high" }
