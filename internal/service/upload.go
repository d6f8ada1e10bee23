// Package service implements the business logic of panelshop: upload
// intake, media reconciliation, content management and maintenance.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/metrics"
	"github.com/sonartis/panelshop/internal/repository"
	"github.com/sonartis/panelshop/internal/storage"
)

// DefaultSessionTTL bounds how long a session's upload list is kept.
const DefaultSessionTTL = 24 * time.Hour

// UploadService handles editor upload intake: it stores the blob,
// records it in the tracking ledger and remembers it in the uploader's
// session scope so the first save of a new entity can sweep cheaply.
type UploadService struct {
	backend    storage.Backend
	ledger     repository.UploadLedger
	cache      repository.Cache
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewUploadService creates the upload intake service. cache may be nil;
// session scoping is then disabled and reconciliation falls back to
// full-ledger scans.
func NewUploadService(
	backend storage.Backend,
	ledger repository.UploadLedger,
	cache repository.Cache,
	logger zerolog.Logger,
) *UploadService {
	return &UploadService{
		backend:    backend,
		ledger:     ledger,
		cache:      cache,
		sessionTTL: DefaultSessionTTL,
		logger:     logger.With().Str("service", "upload").Logger(),
	}
}

// StoreUploadInput contains parameters for storing an editor upload.
type StoreUploadInput struct {
	// SessionID identifies the editing session. Empty disables session
	// scoping for this upload.
	SessionID string

	// Filename is the client-provided file name; only its extension is
	// kept, the stored name is generated.
	Filename string

	// Reader provides the file content.
	Reader io.Reader

	// Size is the content length in bytes.
	Size int64

	// UploadedBy is the uploading user's ID, if authenticated.
	UploadedBy *int64
}

// StoreUploadOutput contains the result of storing an upload.
type StoreUploadOutput struct {
	// Path is the storage-relative path of the stored blob.
	Path string
}

// StoreUpload writes the blob, records the ledger row and appends the
// path to the session's upload scope. Ledger and storage failures are
// fatal; session bookkeeping failures are logged and ignored.
func (s *UploadService) StoreUpload(ctx context.Context, input StoreUploadInput) (*StoreUploadOutput, error) {
	path := storage.NewUploadPath(input.Filename, time.Now().UTC())

	if err := s.backend.Store(ctx, path, input.Reader, input.Size); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if err := s.ledger.Record(ctx, path, input.UploadedBy); err != nil {
		// The blob exists but is untracked; remove it so it cannot leak.
		if _, delErr := s.backend.Delete(ctx, path); delErr != nil {
			s.logger.Error().Err(delErr).Str("path", path).Msg("failed to remove blob after ledger error")
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	metrics.UploadsTracked.Inc()

	if input.SessionID != "" {
		if err := s.appendSessionUpload(ctx, input.SessionID, path); err != nil {
			s.logger.Warn().Err(err).
				Str("session_id", input.SessionID).
				Str("path", path).
				Msg("failed to append upload to session scope")
		}
	}

	s.logger.Debug().Str("path", path).Int64("size", input.Size).Msg("upload stored")

	return &StoreUploadOutput{Path: path}, nil
}

// SessionUploads returns the paths uploaded during the session, or nil
// when the scope is empty or unavailable. nil means "unknown", and the
// reconciler degrades to a full-ledger scan.
func (s *UploadService) SessionUploads(ctx context.Context, sessionID string) []string {
	if s.cache == nil || sessionID == "" {
		return nil
	}

	raw, err := s.cache.Get(ctx, sessionUploadsKey(sessionID))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read session upload scope")
		}
		return nil
	}

	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("corrupt session upload scope")
		return nil
	}
	return paths
}

// ClearSessionUploads drops the session's upload scope. Called after the
// first save of the owning entity completes.
func (s *UploadService) ClearSessionUploads(ctx context.Context, sessionID string) {
	if s.cache == nil || sessionID == "" {
		return
	}
	if err := s.cache.Delete(ctx, sessionUploadsKey(sessionID)); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear session upload scope")
	}
}

func (s *UploadService) appendSessionUpload(ctx context.Context, sessionID, path string) error {
	if s.cache == nil {
		return nil
	}

	key := sessionUploadsKey(sessionID)
	var paths []string
	raw, err := s.cache.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal(raw, &paths); err != nil {
			paths = nil
		}
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		return err
	}

	paths = append(paths, path)
	encoded, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, encoded, s.sessionTTL)
}

func sessionUploadsKey(sessionID string) string {
	return "session:" + sessionID + ":uploads"
}
