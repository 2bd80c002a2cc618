package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/soclabs/copilot/internal/correlation"
	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/search"
)

// WazuhAdapter correlates host authentication events: a burst of failed
// logins from one source IP followed by a success on the same IP.
type WazuhAdapter struct {
	FailureThreshold int
}

func (a *WazuhAdapter) Name() string { return "wazuh" }
func (a *WazuhAdapter) Tag() string  { return "copilot_wazuh" }

func (a *WazuhAdapter) Candidates(settings *models.CustomerAlertSettings, from, to time.Time, size int) search.CandidateQuery {
	return search.CandidateQuery{
		Indices:   []string{fmt.Sprintf("wazuh-%s-*", settings.CustomerCode)},
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

// wazuhStatus classifies events through the rule_group labels the agent
// attaches to authentication decoders.
func wazuhStatus(e *models.Event) correlation.Status {
	group, ok := fields.NewResolver("rule_group", "rule_groups").ResolveString(e)
	if !ok {
		return correlation.StatusOther
	}
	switch {
	case strings.Contains(group, "authentication_failed"), strings.Contains(group, "authentication_failures"):
		return correlation.StatusFailure
	case strings.Contains(group, "authentication_success"):
		return correlation.StatusSuccess
	default:
		return correlation.StatusOther
	}
}

func (a *WazuhAdapter) Rules() []correlation.Rule {
	return []correlation.Rule{
		&correlation.FailureThresholdRule{
			RuleName:  "wazuh_bruteforce_success",
			Threshold: a.FailureThreshold,
			Key:       fields.SourceIP.ResolveString,
			Status:    wazuhStatus,
		},
	}
}

func (a *WazuhAdapter) CaseTitle(se *models.SuspiciousEvent) string {
	host, _ := fields.Hostname.ResolveString(&se.Event)
	return fmt.Sprintf("Successful login after repeated failures on %s from %s", host, se.Key)
}

func (a *WazuhAdapter) CaseDescription(se *models.SuspiciousEvent, settings *models.CustomerAlertSettings) string {
	user, _ := fields.Username.ResolveString(&se.Event)
	desc := fmt.Sprintf(
		"Source IP %s accumulated %v failed authentication attempts and then logged in successfully as %q at %s.",
		se.Key, se.Details["failure_count"], user, se.Event.Timestamp.UTC().Format(time.RFC3339))
	if settings.DashboardURL != "" {
		desc += fmt.Sprintf("\n\nDashboard: %s", settings.DashboardURL)
	}
	return desc
}

func (a *WazuhAdapter) Asset(se *models.SuspiciousEvent) models.Asset {
	host, _ := fields.Hostname.ResolveString(&se.Event)
	if host == "" {
		host = se.Key
	}
	ip, _ := fields.SourceIP.ResolveString(&se.Event)
	return models.Asset{
		Name:             host,
		IP:               ip,
		Type:             "host",
		Description:      fmt.Sprintf("Flagged by rule %s", se.RuleName),
		CompromiseStatus: "suspected",
	}
}

func (a *WazuhAdapter) IOCCandidates(se *models.SuspiciousEvent) []string {
	candidates := []string{se.Key}
	if ip, ok := fields.SourceIP.ResolveString(&se.Event); ok {
		candidates = append(candidates, ip)
	}
	return candidates
}

func (a *WazuhAdapter) Severity() string { return "high" }
