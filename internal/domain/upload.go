// Package domain contains the core business entities for panelshop.
package domain

import (
	"time"
)

// TrackedUpload is a ledger row for a rich-text-editor image upload.
// Every file written to the uploads/ namespace gets exactly one row here.
// The row is an index over the HTML content, not the source of truth:
// the saved content is authoritative, and reconciliation keeps the two
// in agreement.
type TrackedUpload struct {
	// Path is the storage-relative path of the blob, always prefixed
	// with "uploads/". Unique across the ledger.
	Path string `json:"path"`

	// UploadedBy is the ID of the user who uploaded the file, if known.
	// Many uploads are unattributed.
	UploadedBy *int64 `json:"uploaded_by,omitempty"`

	// UploadedAt is set once at creation and never mutated, even when a
	// path is re-uploaded. The grace window is measured from it.
	UploadedAt time.Time `json:"uploaded_at"`

	// IsUsed reports whether some saved content currently references
	// the upload. True iff both UsedInEntityType and UsedInEntityID
	// are set.
	IsUsed bool `json:"is_used"`

	// UsedInEntityType and UsedInEntityID form a weak back-reference to
	// the content record that last claimed the upload. Lookup only, not
	// an ownership edge.
	UsedInEntityType string `json:"used_in_entity_type,omitempty"`
	UsedInEntityID   *int64 `json:"used_in_entity_id,omitempty"`
}

// NewTrackedUpload creates an unused ledger row for a freshly stored blob.
func NewTrackedUpload(path string, uploadedBy *int64) *TrackedUpload {
	return &TrackedUpload{
		Path:       path,
		UploadedBy: uploadedBy,
		UploadedAt: time.Now().UTC(),
	}
}

// ClaimedBy reports whether the upload's back-reference points at the
// given entity.
func (u *TrackedUpload) ClaimedBy(entityType string, entityID int64) bool {
	return u.IsUsed &&
		u.UsedInEntityType == entityType &&
		u.UsedInEntityID != nil && *u.UsedInEntityID == entityID
}

// MarkUsed sets the back-reference to the claiming entity.
func (u *TrackedUpload) MarkUsed(entityType string, entityID int64) {
	u.IsUsed = true
	u.UsedInEntityType = entityType
	u.UsedInEntityID = &entityID
}

// MarkUnused clears the usage state and back-reference.
func (u *TrackedUpload) MarkUnused() {
	u.IsUsed = false
	u.UsedInEntityType = ""
	u.UsedInEntityID = nil
}

// OlderThan reports whether the upload's age exceeds d.
func (u *TrackedUpload) OlderThan(d time.Duration) bool {
	return time.Since(u.UploadedAt) > d
}

// Consistent reports whether the usage flag and the back-reference fields
// agree: IsUsed must hold iff both back-reference fields are set.
func (u *TrackedUpload) Consistent() bool {
	hasRef := u.UsedInEntityType != "" && u.UsedInEntityID != nil
	return u.IsUsed == hasRef
}
