package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/soclabs/copilot/internal/models"
)

// updateError carries the OpenSearch response so callers can recognize a
// write-blocked index.
type updateError struct {
	status int
	body   string
	ref    models.DocumentRef
}

func (e *updateError) Error() string {
	return fmt.Sprintf("update of %s/%s returned %d: %s", e.ref.Index, e.ref.ID, e.status, e.body)
}

// isWriteBlocked reports whether an update failed because the target index
// has its write block enabled. OpenSearch answers 403 with a
// cluster_block_exception in that case.
func isWriteBlocked(err error) bool {
	ue, ok := err.(*updateError)
	if !ok {
		return false
	}
	if ue.status != 403 {
		return false
	}
	return strings.Contains(ue.body, "cluster_block_exception") ||
		strings.Contains(ue.body, "index write (api)")
}

// Markers writes idempotency flags back onto source documents. Marker writes
// never abort an analysis pass; every method reports success as a bool and
// leaves the decision of whether a failed marker matters to the caller.
type Markers struct {
	client      *Client
	caseBaseURL string
}

// NewMarkers returns a marker store over the given client. caseBaseURL is
// the case-management system's URL used to build per-case deep links; empty
// disables link generation.
func NewMarkers(client *Client, caseBaseURL string) *Markers {
	return &Markers{client: client, caseBaseURL: strings.TrimRight(caseBaseURL, "/")}
}

// MarkProcessed sets the named flags to true on the source document.
// Returns false when the write did not land.
func (m *Markers) MarkProcessed(ctx context.Context, ref models.DocumentRef, flags ...string) bool {
	partial := make(map[string]interface{}, len(flags))
	for _, f := range flags {
		partial[f] = true
	}
	return m.updateWithUnblock(ctx, ref, partial)
}

// AttachCaseReference records the created or updated case id and a deep
// link into the case system on the source document, alongside the processed
// flags. Returns the link so callers can reuse it in notifications.
func (m *Markers) AttachCaseReference(ctx context.Context, ref models.DocumentRef, caseID int64, flags ...string) (string, bool) {
	link := m.CaseLink(caseID)
	partial := map[string]interface{}{"alert_id": caseID}
	if link != "" {
		partial["case_url"] = link
	}
	for _, f := range flags {
		partial[f] = true
	}
	return link, m.updateWithUnblock(ctx, ref, partial)
}

// CaseLink renders the deep link for a case id.
func (m *Markers) CaseLink(caseID int64) string {
	if m.caseBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/case/%d", m.caseBaseURL, caseID)
}

// updateWithUnblock attempts the partial update; when the index is
// write-blocked, it lifts the block, retries once and restores the block
// regardless of the retry result.
func (m *Markers) updateWithUnblock(ctx context.Context, ref models.DocumentRef, partial map[string]interface{}) bool {
	err := m.client.UpdateDocument(ctx, ref, partial)
	if err == nil {
		return true
	}
	if !isWriteBlocked(err) {
		log.Printf("marker update failed for %s/%s: %v", ref.Index, ref.ID, err)
		return false
	}

	if unblockErr := m.client.SetWriteBlock(ctx, ref.Index, false); unblockErr != nil {
		log.Printf("failed to lift write block on %s: %v", ref.Index, unblockErr)
		return false
	}

	retryErr := m.client.UpdateDocument(ctx, ref, partial)

	if reblockErr := m.client.SetWriteBlock(ctx, ref.Index, true); reblockErr != nil {
		log.Printf("failed to restore write block on %s: %v", ref.Index, reblockErr)
	}

	if retryErr != nil {
		log.Printf("marker update failed for %s/%s after lifting write block: %v", ref.Index, ref.ID, retryErr)
		return false
	}
	return true
}
