// Package repository defines data access interfaces for panelshop.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while
// keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
)

// =============================================================================
// Upload Ledger
// =============================================================================

// UploadLedger is the persistent record of every tracked editor upload
// and its usage state. At most one row exists per path; the
// implementations self-heal if a duplicate is ever created.
type UploadLedger interface {
	// Record creates a ledger row for a fresh upload, or touches an
	// existing unused row: the uploader is refreshed but the original
	// upload timestamp is kept (first-upload-wins). A row already
	// marked used is left untouched. Idempotent.
	Record(ctx context.Context, path string, uploadedBy *int64) error

	// Get retrieves the ledger row for a path.
	// Returns ErrNotFound if the path was never tracked.
	Get(ctx context.Context, path string) (*domain.TrackedUpload, error)

	// MarkUsed upserts a used row claiming the path for the entity.
	// Runs as a single atomic read-modify-write per path: if duplicate
	// rows exist, exactly one is kept and the rest deleted. A missing
	// row is created as used (pre-tracking-era uploads).
	MarkUsed(ctx context.Context, path, entityType string, entityID int64) error

	// MarkUnused clears the usage state of a path, but only when the
	// current claimant matches the given entity. Another entity's claim
	// is never stolen. A missing row is not an error.
	MarkUnused(ctx context.Context, path, entityType string, entityID int64) error

	// ListUnused returns all rows with no usage claim, oldest first.
	ListUnused(ctx context.Context) ([]*domain.TrackedUpload, error)

	// ListUsedBy returns all rows claimed by the given entity.
	ListUsedBy(ctx context.Context, entityType string, entityID int64) ([]*domain.TrackedUpload, error)

	// Delete removes the ledger row for a path. A missing row is not an
	// error.
	Delete(ctx context.Context, path string) error

	// PurgeUsedOlderThan deletes used rows whose upload timestamp is
	// older than the retention window. Bookkeeping only; blobs are
	// never touched. Returns the number of rows removed.
	PurgeUsedOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// =============================================================================
// Content Repositories
// =============================================================================

// ContentSource yields every live record of one content type as an
// ImageOwner. The reconciler scans all registered sources to build the
// global referenced-path set.
type ContentSource interface {
	// EntityType returns the type name of the records this source yields.
	EntityType() string

	// ListOwners returns every live record, with rich-text fields and
	// image attachments loaded.
	ListOwners(ctx context.Context) ([]domain.ImageOwner, error)
}

// ProductRepository defines data access for catalog products.
// Create and Update persist the gallery images and pattern swatches
// attached to the product in the same transaction as the row itself.
type ProductRepository interface {
	ContentSource

	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts ListOptions) ([]*domain.Product, error)
}

// BlogPostRepository defines data access for blog posts.
type BlogPostRepository interface {
	ContentSource

	Create(ctx context.Context, b *domain.BlogPost) error
	GetByID(ctx context.Context, id int64) (*domain.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error)
	Update(ctx context.Context, b *domain.BlogPost) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts ListOptions) ([]*domain.BlogPost, error)
}

// TopicRepository defines data access for knowledge-base topics.
type TopicRepository interface {
	ContentSource

	Create(ctx context.Context, t *domain.Topic) error
	GetByID(ctx context.Context, id int64) (*domain.Topic, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Topic, error)
	Update(ctx context.Context, t *domain.Topic) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts ListOptions) ([]*domain.Topic, error)
}

// CategoryRepository defines data access for categories.
type CategoryRepository interface {
	ContentSource

	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts ListOptions) ([]*domain.Category, error)
}

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return. Zero means no
	// limit.
	Limit int
}
