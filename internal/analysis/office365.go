package analysis

import (
	"fmt"
	"time"

	"github.com/soclabs/copilot/internal/correlation"
	"github.com/soclabs/copilot/internal/fields"
	"github.com/soclabs/copilot/internal/models"
	"github.com/soclabs/copilot/internal/search"
)

// Office365Adapter correlates cloud sign-in activity: repeated failed
// logins for one account followed by a successful one.
type Office365Adapter struct {
	FailureThreshold int
}

func (a *Office365Adapter) Name() string { return "office365" }
func (a *Office365Adapter) Tag() string  { return "copilot_office365" }

var o365User = fields.NewResolver("UserId", "user_id", "user")

func (a *Office365Adapter) Candidates(settings *models.CustomerAlertSettings, from, to time.Time, size int) search.CandidateQuery {
	return search.CandidateQuery{
		Indices:   []string{fmt.Sprintf("office365-%s-*", settings.CustomerCode)},
		Timefield: timefield(settings),
		From:      from,
		To:        to,
		TermFilters: map[string]string{
			"customer_code": settings.CustomerCode,
			"Workload":      "AzureActiveDirectory",
		},
		ExcludeFlags:    []string{models.FlagCaseCreated, models.FlagEventAnalyzed, models.FlagEventExcluded},
		Size:            size,
		ScrollKeepAlive: 2 * time.Minute,
	}
}

func o365Status(e *models.Event) correlation.Status {
	op, ok := fields.NewResolver("Operation", "operation").ResolveString(e)
	if !ok {
		return correlation.StatusOther
	}
	switch op {
	case "UserLoginFailed":
		return correlation.StatusFailure
	case "UserLoggedIn":
		return correlation.StatusSuccess
	default:
		return correlation.StatusOther
	}
}

func (a *Office365Adapter) Rules() []correlation.Rule {
	return []correlation.Rule{
		&correlation.FailureThresholdRule{
			RuleName:  "office365_bruteforce_success",
			Threshold: a.FailureThreshold,
			Key:       o365User.ResolveString,
			Status:    o365Status,
		},
	}
}

func (a *Office365Adapter) CaseTitle(se *models.SuspiciousEvent) string {
	return fmt.Sprintf("Successful sign-in after repeated failures for %s", se.Key)
}

func (a *Office365Adapter) CaseDescription(se *models.SuspiciousEvent, settings *models.CustomerAlertSettings) string {
	ip, _ := fields.NewResolver("ClientIP", "client_ip", "ip").ResolveString(&se.Event)
	desc := fmt.Sprintf(
		"Account %s failed to sign in %v times and then signed in successfully from %s at %s.",
		se.Key, se.Details["failure_count"], ip, se.Event.Timestamp.UTC().Format(time.RFC3339))
	if settings.DashboardURL != "" {
		desc += fmt.Sprintf("\n\nDashboard: %s", settings.DashboardURL)
	}
	return desc
}

func (a *Office365Adapter) Asset(se *models.SuspiciousEvent) models.Asset {
	ip, _ := fields.NewResolver("ClientIP", "client_ip", "ip").ResolveString(&se.Event)
	return models.Asset{
		Name:             se.Key,
		IP:               ip,
		Type:             "account",
		Description:      fmt.Sprintf("Flagged by rule %s", se.RuleName),
		CompromiseStatus: "suspected",
	}
}

func (a *Office365Adapter) IOCCandidates(se *models.SuspiciousEvent) []string {
	candidates := []string{}
	if ip, ok := fields.NewResolver("ClientIP", "client_ip", "ip").ResolveString(&se.Event); ok {
		candidates = append(candidates, ip)
	}
	return candidates
}

func (a *Office365Adapter) Severity() string { return "high" }
