// Package storage defines interfaces for media blob storage backends.
package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadsPrefix is the namespace for rich-text-editor uploads. Only paths
// under this prefix are tracked by the ledger and eligible for
// reconciliation.
const UploadsPrefix = "uploads/"

// mediaRoot is the public URL prefix the media server exposes blobs
// under. It is stripped during normalization.
const mediaRoot = "media/"

// NormalizeUploadPath converts an image URL, absolute or relative, into a
// storage-relative path under the uploads namespace.
//
// Accepted forms:
//
//	/media/uploads/2024/01/a.jpg
//	https://media.example.com/media/uploads/2024/01/a.jpg
//	uploads/2024/01/a.jpg
//
// Returns ("", false) for anything outside the uploads namespace:
// external URLs, other site assets, unparseable input.
func NormalizeUploadPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	p := strings.TrimPrefix(parsed.Path, "/")

	// Strip the media root wherever it occurs: CDN domains serve blobs
	// under arbitrary base paths ending in /media/.
	if idx := strings.Index(p, "/"+mediaRoot); idx >= 0 {
		p = p[idx+1+len(mediaRoot):]
	} else {
		p = strings.TrimPrefix(p, mediaRoot)
	}

	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, UploadsPrefix) {
		return "", false
	}
	return cleaned, true
}

// IsUploadPath reports whether a storage-relative path lives in the
// uploads namespace.
func IsUploadPath(p string) bool {
	return strings.HasPrefix(p, UploadsPrefix)
}

// NewUploadPath generates a storage path for a fresh upload, sharded by
// date the way the editor's upload handler lays files out:
// uploads/2024/01/15/{uuid}.{ext}.
func NewUploadPath(filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s%s/%s%s",
		UploadsPrefix,
		now.UTC().Format("2006/01/02"),
		uuid.New().String(),
		ext,
	)
}
