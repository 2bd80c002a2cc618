package models

// CustomerAlertSettings is the per-customer mapping into the case-management
// system. Owned by customer provisioning; read-only to the analysis pipeline.
type CustomerAlertSettings struct {
	CustomerCode   string `json:"customer_code"`
	CaseCustomerID int64  `json:"case_customer_id"`
	CaseIndex      string `json:"case_index"`
	TimefieldName  string `json:"timefield_name"`
	DashboardURL   string `json:"dashboard_url"`
	WebhookURL     string `json:"webhook_url"`
}
