package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// uploadLedger implements repository.UploadLedger for SQLite.
type uploadLedger struct {
	db *DB
}

// NewUploadLedger creates a new SQLite upload ledger.
func NewUploadLedger(db *DB) repository.UploadLedger {
	return &uploadLedger{db: db}
}

// Record creates a ledger row for a fresh upload, or refreshes the
// uploader on an existing unused row. The original upload timestamp is
// always preserved (first-upload-wins); used rows are left untouched.
func (r *uploadLedger) Record(ctx context.Context, path string, uploadedBy *int64) error {
	query := `
		INSERT INTO tracked_uploads (path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id)
		VALUES (?, ?, ?, 0, '', NULL)
		ON CONFLICT(path) DO UPDATE
		SET uploaded_by = excluded.uploaded_by
		WHERE tracked_uploads.is_used = 0
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, query, path, nullableID(uploadedBy), now)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// Get retrieves the ledger row for a path.
func (r *uploadLedger) Get(ctx context.Context, path string) (*domain.TrackedUpload, error) {
	query := `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads
		WHERE path = ?
	`
	upload, err := scanUpload(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tracked upload: %w", err)
	}
	return upload, nil
}

// MarkUsed claims the path for the entity in a single transaction.
// A missing row is created as used (the path predates tracking); any
// stray duplicate rows are removed, keeping the oldest.
func (r *uploadLedger) MarkUsed(ctx context.Context, path, entityType string, entityID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// The primary key makes duplicates structurally impossible, but
		// the ledger self-heals anyway: keep the oldest row, drop the rest.
		_, err := tx.ExecContext(ctx, `
			DELETE FROM tracked_uploads
			WHERE path = ? AND rowid NOT IN (
				SELECT MIN(rowid) FROM tracked_uploads WHERE path = ?
			)
		`, path, path)
		if err != nil {
			return fmt.Errorf("failed to deduplicate ledger rows: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracked_uploads (path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id)
			VALUES (?, NULL, ?, 1, ?, ?)
			ON CONFLICT(path) DO UPDATE
			SET is_used = 1, used_in_entity_type = excluded.used_in_entity_type,
			    used_in_entity_id = excluded.used_in_entity_id
		`, path, now, entityType, entityID)
		if err != nil {
			return fmt.Errorf("failed to mark upload used: %w", err)
		}
		return nil
	})
}

// MarkUnused clears the usage state only when the given entity is the
// current claimant. A missing row is not an error.
func (r *uploadLedger) MarkUnused(ctx context.Context, path, entityType string, entityID int64) error {
	query := `
		UPDATE tracked_uploads
		SET is_used = 0, used_in_entity_type = '', used_in_entity_id = NULL
		WHERE path = ? AND is_used = 1 AND used_in_entity_type = ? AND used_in_entity_id = ?
	`
	_, err := r.db.ExecContext(ctx, query, path, entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to mark upload unused: %w", err)
	}
	return nil
}

// ListUnused returns all rows without a usage claim, oldest first.
func (r *uploadLedger) ListUnused(ctx context.Context) ([]*domain.TrackedUpload, error) {
	query := `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads
		WHERE is_used = 0
		ORDER BY uploaded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unused uploads: %w", err)
	}
	defer rows.Close()

	return collectUploads(rows)
}

// ListUsedBy returns all rows claimed by the given entity.
func (r *uploadLedger) ListUsedBy(ctx context.Context, entityType string, entityID int64) ([]*domain.TrackedUpload, error) {
	query := `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads
		WHERE is_used = 1 AND used_in_entity_type = ? AND used_in_entity_id = ?
		ORDER BY uploaded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads by claimant: %w", err)
	}
	defer rows.Close()

	return collectUploads(rows)
}

// Delete removes the ledger row for a path.
func (r *uploadLedger) Delete(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tracked_uploads WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete tracked upload: %w", err)
	}
	return nil
}

// PurgeUsedOlderThan deletes used rows older than the retention window.
func (r *uploadLedger) PurgeUsedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tracked_uploads WHERE is_used = 1 AND uploaded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge used uploads: %w", err)
	}
	purged, _ := result.RowsAffected()
	return purged, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUpload(row rowScanner) (*domain.TrackedUpload, error) {
	upload := &domain.TrackedUpload{}
	var uploadedBy, usedInID sql.NullInt64
	var uploadedAt string
	var isUsed int

	err := row.Scan(
		&upload.Path,
		&uploadedBy,
		&uploadedAt,
		&isUsed,
		&upload.UsedInEntityType,
		&usedInID,
	)
	if err != nil {
		return nil, err
	}

	upload.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
	upload.IsUsed = isUsed != 0
	if uploadedBy.Valid {
		upload.UploadedBy = &uploadedBy.Int64
	}
	if usedInID.Valid {
		upload.UsedInEntityID = &usedInID.Int64
	}
	return upload, nil
}

func collectUploads(rows *sql.Rows) ([]*domain.TrackedUpload, error) {
	var uploads []*domain.TrackedUpload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked upload: %w", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked uploads: %w", err)
	}
	return uploads, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Ensure uploadLedger implements repository.UploadLedger.
var _ repository.UploadLedger = (*uploadLedger)(nil)
