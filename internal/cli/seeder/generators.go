package seeder

import (
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

type eventGenerator interface {
	// noise returns background events that should never fire a rule.
	noise(n int) []map[string]interface{}
	// burst returns one attack sequence that satisfies a firing condition.
	burst() []map[string]interface{}
}

type generator struct {
	rng      *rand.Rand
	customer string
	now      time.Time
	spread   time.Duration
}

// eventTime places an event at a jittered offset inside the spread window,
// going backwards from now.
func (g *generator) eventTime(index, total int) string {
	baseInterval := float64(g.spread) / float64(total)
	baseOffset := time.Duration(float64(index) * baseInterval)

	jitterRange := baseInterval * 0.4
	jitter := time.Duration((g.rng.Float64()*2.0 - 1.0) * jitterRange)

	totalOffset := baseOffset + jitter
	if totalOffset < 0 {
		totalOffset = 0
	}
	if totalOffset > g.spread {
		totalOffset = g.spread
	}

	return g.now.Add(-(g.spread - totalOffset)).Format(time.RFC3339)
}

// burstTimes returns n timestamps packed into a few minutes near the end of
// the window so the whole sequence lands inside one analysis pass.
func (g *generator) burstTimes(n int) []string {
	start := g.now.Add(-time.Duration(g.rng.Intn(30)+5) * time.Minute)
	times := make([]string, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i*10+g.rng.Intn(10)) * time.Second).Format(time.RFC3339)
	}
	return times
}

type wazuhGenerator struct{ generator }

func (g *wazuhGenerator) event(ts, ip, ruleGroup string) map[string]interface{} {
	return map[string]interface{}{
		"timestamp_utc": ts,
		"ip":            ip,
		"rule_group":    ruleGroup,
		"agent_name":    gofakeit.AppName(),
		"customer_code": g.customer,
		"rule_level":    g.rng.Intn(10),
	}
}

func (g *wazuhGenerator) noise(n int) []map[string]interface{} {
	events := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		group := "authentication_success"
		if g.rng.Intn(4) == 0 {
			group = "authentication_failed"
		}
		events = append(events, g.event(g.eventTime(i, n), gofakeit.IPv4Address(), group))
	}
	return events
}

func (g *wazuhGenerator) burst() []map[string]interface{} {
	ip := gofakeit.IPv4Address()
	failures := 5 + g.rng.Intn(5)
	times := g.burstTimes(failures + 1)

	events := make([]map[string]interface{}, 0, failures+1)
	for i := 0; i < failures; i++ {
		events = append(events, g.event(times[i], ip, "authentication_failed"))
	}
	events = append(events, g.event(times[failures], ip, "authentication_success"))
	return events
}

type office365Generator struct{ generator }

func (g *office365Generator) event(ts, user, ip, operation string) map[string]interface{} {
	return map[string]interface{}{
		"timestamp_utc": ts,
		"Workload":      "AzureActiveDirectory",
		"Operation":     operation,
		"UserId":        user,
		"ClientIP":      ip,
		"customer_code": g.customer,
	}
}

func (g *office365Generator) noise(n int) []map[string]interface{} {
	events := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		op := "UserLoggedIn"
		if g.rng.Intn(5) == 0 {
			op = "UserLoginFailed"
		}
		events = append(events, g.event(g.eventTime(i, n), gofakeit.Email(), gofakeit.IPv4Address(), op))
	}
	return events
}

func (g *office365Generator) burst() []map[string]interface{} {
	user := gofakeit.Email()
	ip := gofakeit.IPv4Address()
	failures := 5 + g.rng.Intn(5)
	times := g.burstTimes(failures + 1)

	events := make([]map[string]interface{}, 0, failures+1)
	for i := 0; i < failures; i++ {
		events = append(events, g.event(times[i], user, ip, "UserLoginFailed"))
	}
	events = append(events, g.event(times[failures], user, ip, "UserLoggedIn"))
	return events
}

type suricataGenerator struct{ generator }

var suricataSignatures = []string{
	"ET SCAN Nmap Scripting Engine User-Agent Detected",
	"ET SCAN Potential SSH Scan",
	"ET POLICY curl User-Agent Outbound",
	"ET INFO Executable Download from dotted-quad Host",
	"ET EXPLOIT Apache log4j RCE Attempt",
	"ET MALWARE Win32/Agent Variant CnC Beacon",
	"ET SCAN Behavioral Unusual Port 445 traffic",
	"ET WEB_SERVER SQL Injection Attempt UNION SELECT",
	"ET WEB_SERVER WebShell Generic eval of gzinflate",
	"ET DNS Query to a *.top domain",
	"ET SCAN Suspicious inbound to mSQL port 4333",
	"ET POLICY Python-urllib/ Suspicious User-Agent",
	"ET SCAN Potential VNC Scan 5800-5820",
	"ET CINS Active Threat Intelligence Poor Reputation IP",
}

func (g *suricataGenerator) event(ts, ip, signature string) map[string]interface{} {
	return map[string]interface{}{
		"timestamp_utc":   ts,
		"event_type":      "alert",
		"ip":              ip,
		"alert_signature": signature,
		"dest_ip":         gofakeit.IPv4Address(),
		"customer_code":   g.customer,
	}
}

func (g *suricataGenerator) noise(n int) []map[string]interface{} {
	events := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		signature := suricataSignatures[g.rng.Intn(3)]
		events = append(events, g.event(g.eventTime(i, n), gofakeit.IPv4Address(), signature))
	}
	return events
}

func (g *suricataGenerator) burst() []map[string]interface{} {
	ip := gofakeit.IPv4Address()
	times := g.burstTimes(len(suricataSignatures))

	events := make([]map[string]interface{}, 0, len(suricataSignatures))
	for i, signature := range suricataSignatures {
		events = append(events, g.event(times[i], ip, signature))
	}
	return events
}

type sapGenerator struct{ generator }

func (g *sapGenerator) event(ts, login, ip, country, errCode string) map[string]interface{} {
	return map[string]interface{}{
		"timestamp_utc": ts,
		"login_id":      login,
		"ip":            ip,
		"country":       country,
		"error_code":    errCode,
		"customer_code": g.customer,
	}
}

func (g *sapGenerator) noise(n int) []map[string]interface{} {
	events := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		errCode := "0"
		if g.rng.Intn(4) == 0 {
			errCode = "051"
		}
		events = append(events, g.event(g.eventTime(i, n), gofakeit.Username(), gofakeit.IPv4Address(), gofakeit.CountryAbr(), errCode))
	}
	return events
}

// burst builds a geo divergence sequence: a login fails repeatedly from one
// country, then succeeds from another.
func (g *sapGenerator) burst() []map[string]interface{} {
	login := gofakeit.Username()
	homeCountry := gofakeit.CountryAbr()
	awayCountry := gofakeit.CountryAbr()
	for awayCountry == homeCountry {
		awayCountry = gofakeit.CountryAbr()
	}

	failures := 3 + g.rng.Intn(3)
	times := g.burstTimes(failures + 1)

	events := make([]map[string]interface{}, 0, failures+1)
	for i := 0; i < failures; i++ {
		events = append(events, g.event(times[i], login, gofakeit.IPv4Address(), homeCountry, "051"))
	}
	events = append(events, g.event(times[failures], login, gofakeit.IPv4Address(), awayCountry, "0"))
	return events
}
