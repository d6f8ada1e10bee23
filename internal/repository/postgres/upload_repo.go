package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// uploadLedger implements repository.UploadLedger backed by PostgreSQL.
type uploadLedger struct {
	db *DB
}

// NewUploadLedger creates a PostgreSQL-backed upload ledger.
func NewUploadLedger(db *DB) repository.UploadLedger {
	return &uploadLedger{db: db}
}

func (r *uploadLedger) Record(ctx context.Context, path string, uploadedBy *int64) error {
	// Re-uploading the same path refreshes the uploader but keeps the
	// original timestamp and any existing claim.
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO tracked_uploads (path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id)
		VALUES ($1, $2, $3, FALSE, '', NULL)
		ON CONFLICT (path) DO UPDATE SET uploaded_by = EXCLUDED.uploaded_by
		WHERE tracked_uploads.is_used = FALSE`,
		path, uploadedBy, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

func (r *uploadLedger) Get(ctx context.Context, path string) (*domain.TrackedUpload, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads WHERE path = $1`,
		path,
	)
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return upload, nil
}

func (r *uploadLedger) MarkUsed(ctx context.Context, path, entityType string, entityID int64) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		// Collapse any duplicate rows for the path, keeping the oldest.
		_, err := tx.Exec(ctx, `
			DELETE FROM tracked_uploads
			WHERE path = $1 AND ctid <> (
				SELECT ctid FROM tracked_uploads
				WHERE path = $1
				ORDER BY uploaded_at ASC, ctid ASC
				LIMIT 1
			)`,
			path,
		)
		if err != nil {
			return fmt.Errorf("failed to deduplicate upload rows: %w", err)
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx, `
			INSERT INTO tracked_uploads (path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id)
			VALUES ($1, NULL, $2, TRUE, $3, $4)
			ON CONFLICT (path) DO UPDATE SET
				is_used = TRUE,
				used_in_entity_type = EXCLUDED.used_in_entity_type,
				used_in_entity_id = EXCLUDED.used_in_entity_id`,
			path, now, entityType, entityID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark upload used: %w", err)
		}
		return nil
	})
}

func (r *uploadLedger) MarkUnused(ctx context.Context, path, entityType string, entityID int64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE tracked_uploads
		SET is_used = FALSE, used_in_entity_type = '', used_in_entity_id = NULL
		WHERE path = $1 AND used_in_entity_type = $2 AND used_in_entity_id = $3`,
		path, entityType, entityID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark upload unused: %w", err)
	}
	return nil
}

func (r *uploadLedger) ListUnused(ctx context.Context) ([]*domain.TrackedUpload, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads
		WHERE is_used = FALSE
		ORDER BY uploaded_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unused uploads: %w", err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

func (r *uploadLedger) ListUsedBy(ctx context.Context, entityType string, entityID int64) ([]*domain.TrackedUpload, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT path, uploaded_by, uploaded_at, is_used, used_in_entity_type, used_in_entity_id
		FROM tracked_uploads
		WHERE is_used = TRUE AND used_in_entity_type = $1 AND used_in_entity_id = $2
		ORDER BY uploaded_at ASC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads by claimant: %w", err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

func (r *uploadLedger) Delete(ctx context.Context, path string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM tracked_uploads WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete upload row: %w", err)
	}
	return nil
}

func (r *uploadLedger) PurgeUsedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM tracked_uploads WHERE is_used = TRUE AND uploaded_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge used uploads: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUpload(row pgx.Row) (*domain.TrackedUpload, error) {
	var upload domain.TrackedUpload
	var entityID *int64
	if err := row.Scan(
		&upload.Path,
		&upload.UploadedBy,
		&upload.UploadedAt,
		&upload.IsUsed,
		&upload.UsedInEntityType,
		&entityID,
	); err != nil {
		return nil, err
	}
	upload.UploadedAt = upload.UploadedAt.UTC()
	upload.UsedInEntityID = entityID
	return &upload, nil
}

func collectUploads(rows pgx.Rows) ([]*domain.TrackedUpload, error) {
	var uploads []*domain.TrackedUpload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload row: %w", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upload rows: %w", err)
	}
	return uploads, nil
}

var _ repository.UploadLedger = (*uploadLedger)(nil)
