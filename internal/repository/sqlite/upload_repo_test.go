package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(context.Background(), DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestUploadLedgerRecordAndGet(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	userID := int64(42)
	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", &userID))

	upload, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "uploads/a.jpg", upload.Path)
	require.NotNil(t, upload.UploadedBy)
	require.Equal(t, userID, *upload.UploadedBy)
	require.False(t, upload.IsUsed)
	require.True(t, upload.Consistent())
}

func TestUploadLedgerGetMissing(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))

	_, err := ledger.Get(context.Background(), "uploads/never.jpg")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUploadLedgerRecordIdempotent(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", nil))
	first, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)

	// Re-recording refreshes the uploader but keeps the original
	// timestamp.
	userID := int64(7)
	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", &userID))

	second, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, first.UploadedAt, second.UploadedAt)
	require.NotNil(t, second.UploadedBy)
	require.Equal(t, userID, *second.UploadedBy)
}

func TestUploadLedgerRecordDoesNotTouchUsedRow(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", nil))
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/a.jpg", domain.EntityTypeProduct, 1))

	userID := int64(9)
	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", &userID))

	upload, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, upload.IsUsed)
	require.Nil(t, upload.UploadedBy)
	require.True(t, upload.ClaimedBy(domain.EntityTypeProduct, 1))
}

func TestUploadLedgerMarkUsed(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", nil))
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/a.jpg", domain.EntityTypeBlogPost, 5))

	upload, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, upload.IsUsed)
	require.True(t, upload.ClaimedBy(domain.EntityTypeBlogPost, 5))
	require.True(t, upload.Consistent())
}

func TestUploadLedgerMarkUsedCreatesMissingRow(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	// Pre-tracking-era upload: content references a path the ledger
	// never saw. The claim creates the row.
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/old.jpg", domain.EntityTypeProduct, 3))

	upload, err := ledger.Get(ctx, "uploads/old.jpg")
	require.NoError(t, err)
	require.True(t, upload.ClaimedBy(domain.EntityTypeProduct, 3))
}

func TestUploadLedgerMarkUsedLastClaimWins(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/shared.jpg", nil))
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/shared.jpg", domain.EntityTypeProduct, 1))
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/shared.jpg", domain.EntityTypeBlogPost, 2))

	upload, err := ledger.Get(ctx, "uploads/shared.jpg")
	require.NoError(t, err)
	require.True(t, upload.ClaimedBy(domain.EntityTypeBlogPost, 2))

	// One row per path, even after competing claims.
	rows, err := ledger.ListUsedBy(ctx, domain.EntityTypeBlogPost, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUploadLedgerMarkUnusedClaimantGuard(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", nil))
	require.NoError(t, ledger.MarkUsed(ctx, "uploads/a.jpg", domain.EntityTypeProduct, 1))

	// A different entity cannot clear the claim.
	require.NoError(t, ledger.MarkUnused(ctx, "uploads/a.jpg", domain.EntityTypeProduct, 99))
	upload, err := ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.True(t, upload.IsUsed)

	// The claimant can.
	require.NoError(t, ledger.MarkUnused(ctx, "uploads/a.jpg", domain.EntityTypeProduct, 1))
	upload, err = ledger.Get(ctx, "uploads/a.jpg")
	require.NoError(t, err)
	require.False(t, upload.IsUsed)
	require.True(t, upload.Consistent())
}

func TestUploadLedgerMarkUnusedMissingRow(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))

	require.NoError(t, ledger.MarkUnused(context.Background(), "uploads/none.jpg", domain.EntityTypeProduct, 1))
}

func TestUploadLedgerListUnusedOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ledger := NewUploadLedger(db)
	ctx := context.Background()

	// Insert rows with controlled timestamps.
	for i, row := range []struct {
		path string
		at   time.Time
	}{
		{"uploads/b.jpg", time.Now().UTC().Add(-1 * time.Hour)},
		{"uploads/a.jpg", time.Now().UTC().Add(-2 * time.Hour)},
		{"uploads/c.jpg", time.Now().UTC().Add(-30 * time.Minute)},
	} {
		_, err := db.ExecContext(ctx,
			`INSERT INTO tracked_uploads (path, uploaded_at, is_used) VALUES (?, ?, 0)`,
			row.path, row.at.Format(time.RFC3339))
		require.NoError(t, err, "row %d", i)
	}

	require.NoError(t, ledger.MarkUsed(ctx, "uploads/c.jpg", domain.EntityTypeProduct, 1))

	unused, err := ledger.ListUnused(ctx)
	require.NoError(t, err)
	require.Len(t, unused, 2)
	require.Equal(t, "uploads/a.jpg", unused[0].Path)
	require.Equal(t, "uploads/b.jpg", unused[1].Path)
}

func TestUploadLedgerDelete(t *testing.T) {
	ledger := NewUploadLedger(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, "uploads/a.jpg", nil))
	require.NoError(t, ledger.Delete(ctx, "uploads/a.jpg"))

	_, err := ledger.Get(ctx, "uploads/a.jpg")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Deleting a missing row is fine.
	require.NoError(t, ledger.Delete(ctx, "uploads/a.jpg"))
}

func TestUploadLedgerPurgeUsedOlderThan(t *testing.T) {
	db := newTestDB(t)
	ledger := NewUploadLedger(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-8 * 24 * time.Hour).Format(time.RFC3339)
	recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	_, err := db.ExecContext(ctx, `
		INSERT INTO tracked_uploads (path, uploaded_at, is_used, used_in_entity_type, used_in_entity_id) VALUES
		('uploads/old-used.jpg', ?, 1, 'Product', 1),
		('uploads/recent-used.jpg', ?, 1, 'Product', 2),
		('uploads/old-unused.jpg', ?, 0, '', NULL)
	`, old, recent, old)
	require.NoError(t, err)

	purged, err := ledger.PurgeUsedOlderThan(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	// Only the aged used row is gone. Unused rows are never purged
	// here, they belong to the orphan sweep.
	_, err = ledger.Get(ctx, "uploads/old-used.jpg")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = ledger.Get(ctx, "uploads/recent-used.jpg")
	require.NoError(t, err)
	_, err = ledger.Get(ctx, "uploads/old-unused.jpg")
	require.NoError(t, err)

	// Idempotent.
	purged, err = ledger.PurgeUsedOlderThan(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, purged)
}
