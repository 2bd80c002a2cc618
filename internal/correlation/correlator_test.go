package correlation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclabs/copilot/internal/models"
)

func authEvent(id int, ip, user, country, status string) models.Event {
	return models.Event{
		Index:     "copilot-auth-000001",
		ID:        fmt.Sprintf("evt-%d", id),
		Timestamp: time.Date(2025, 6, 1, 12, 0, id, 0, time.UTC),
		Fields: map[string]any{
			"ip":      ip,
			"user":    user,
			"country": country,
			"status":  status,
		},
	}
}

func keyByIP(e *models.Event) (string, bool)      { return e.StringField("ip") }
func keyByUser(e *models.Event) (string, bool)    { return e.StringField("user") }
func valueCountry(e *models.Event) (string, bool) { return e.StringField("country") }
func valueUser(e *models.Event) (string, bool)    { return e.StringField("user") }

func statusField(e *models.Event) Status {
	s, _ := e.StringField("status")
	switch s {
	case "failure":
		return StatusFailure
	case "success":
		return StatusSuccess
	default:
		return StatusOther
	}
}

func TestFailureThresholdRule(t *testing.T) {
	rule := &FailureThresholdRule{
		RuleName:  "brute-force-by-ip",
		Threshold: 3,
		Key:       keyByIP,
		Status:    statusField,
	}

	t.Run("fires at the success after threshold failures", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "failure"),
			authEvent(4, "1.1.1.1", "alice", "US", "success"),
		}

		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "evt-4", out[0].Event.ID)
		assert.Equal(t, "1.1.1.1", out[0].Key)
		assert.Equal(t, 3, out[0].Details["failure_count"])
		assert.Len(t, out[0].Evidence, 4)
	})

	t.Run("threshold minus one failures emits nothing", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "success"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("success resets the counter", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "success"),
			authEvent(4, "1.1.1.1", "alice", "US", "failure"),
			authEvent(5, "1.1.1.1", "alice", "US", "success"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("firing resets the accumulation", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "failure"),
			authEvent(4, "1.1.1.1", "alice", "US", "success"),
			authEvent(5, "1.1.1.1", "alice", "US", "success"),
		}
		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "evt-4", out[0].Event.ID)
	})

	t.Run("keys are independent", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "2.2.2.2", "bob", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "failure"),
			authEvent(4, "2.2.2.2", "bob", "US", "failure"),
			authEvent(5, "1.1.1.1", "alice", "US", "failure"),
			authEvent(6, "1.1.1.1", "alice", "US", "success"),
			authEvent(7, "2.2.2.2", "bob", "US", "success"),
		}
		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "1.1.1.1", out[0].Key)
	})

	t.Run("deterministic over repeated runs", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "failure"),
			authEvent(4, "1.1.1.1", "alice", "US", "success"),
		}
		first := rule.Correlate(events)
		second := rule.Correlate(events)
		assert.Equal(t, first, second)
	})
}

func TestDistinctValuesRule(t *testing.T) {
	rule := &DistinctValuesRule{
		RuleName:  "many-users-same-ip",
		Threshold: 2,
		Key:       keyByIP,
		Value:     valueUser,
	}

	t.Run("exactly threshold distinct values emits nothing", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "bob", "US", "failure"),
			authEvent(3, "1.1.1.1", "alice", "US", "failure"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("threshold plus one distinct values emits exactly once", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "bob", "US", "failure"),
			authEvent(3, "1.1.1.1", "carol", "US", "failure"),
			authEvent(4, "1.1.1.1", "dave", "US", "failure"),
		}
		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "evt-3", out[0].Event.ID)
		assert.Equal(t, 3, out[0].Details["distinct_count"])
		assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, out[0].Details["distinct_values"])
	})

	t.Run("duplicate values do not advance the count", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "alice", "US", "failure"),
			authEvent(3, "1.1.1.1", "bob", "US", "failure"),
			authEvent(4, "1.1.1.1", "bob", "US", "failure"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("status filter restricts contributing events", func(t *testing.T) {
		filtered := &DistinctValuesRule{
			RuleName:    "many-users-same-ip",
			Threshold:   1,
			Key:         keyByIP,
			Value:       valueUser,
			Status:      statusField,
			CountStatus: StatusFailure,
		}
		events := []models.Event{
			authEvent(1, "1.1.1.1", "alice", "US", "failure"),
			authEvent(2, "1.1.1.1", "bob", "US", "success"),
			authEvent(3, "1.1.1.1", "carol", "US", "success"),
		}
		assert.Empty(t, filtered.Correlate(events))
	})
}

func TestGeoDivergenceRule(t *testing.T) {
	rule := &GeoDivergenceRule{
		RuleName: "login-country-divergence",
		Key:      keyByUser,
		Country:  valueCountry,
		Status:   statusField,
	}

	t.Run("fires at the success from an unseen country", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "u1", "US", "failure"),
			authEvent(2, "2.2.2.2", "u1", "CA", "failure"),
			authEvent(3, "3.3.3.3", "u1", "UK", "success"),
		}
		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "evt-3", out[0].Event.ID)
		assert.Equal(t, "UK", out[0].Details["success_country"])
		assert.ElementsMatch(t, []string{"US", "CA"}, out[0].Details["failed_countries"])
	})

	t.Run("success from a failed country emits nothing", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "u1", "US", "failure"),
			authEvent(2, "1.1.1.1", "u1", "US", "success"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("success with no prior failures emits nothing", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "3.3.3.3", "u1", "UK", "success"),
		}
		assert.Empty(t, rule.Correlate(events))
	})

	t.Run("one shot per key per pass", func(t *testing.T) {
		events := []models.Event{
			authEvent(1, "1.1.1.1", "u1", "US", "failure"),
			authEvent(2, "3.3.3.3", "u1", "UK", "success"),
			authEvent(3, "1.1.1.1", "u1", "US", "failure"),
			authEvent(4, "4.4.4.4", "u1", "FR", "success"),
		}
		out := rule.Correlate(events)
		require.Len(t, out, 1)
		assert.Equal(t, "evt-2", out[0].Event.ID)
	})
}
