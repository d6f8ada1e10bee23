package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// blogPostRepository implements repository.BlogPostRepository for SQLite.
type blogPostRepository struct {
	db *DB
}

// NewBlogPostRepository creates a new SQLite blog post repository.
func NewBlogPostRepository(db *DB) repository.BlogPostRepository {
	return &blogPostRepository{db: db}
}

func (r *blogPostRepository) EntityType() string {
	return domain.EntityTypeBlogPost
}

// Create inserts a blog post.
func (r *blogPostRepository) Create(ctx context.Context, b *domain.BlogPost) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	publishedAt := ""
	if !b.PublishedAt.IsZero() {
		publishedAt = b.PublishedAt.UTC().Format(time.RFC3339)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO blog_posts (title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.Title, b.Slug, b.MetaDescription, b.Thumbnail,
		b.ShortDescription, b.FullDescription, boolToInt(b.IsPublished), publishedAt,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert blog post: %w", err)
	}

	b.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get blog post id: %w", err)
	}
	return nil
}

// GetByID retrieves a blog post by ID.
func (r *blogPostRepository) GetByID(ctx context.Context, id int64) (*domain.BlogPost, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetBySlug retrieves a blog post by slug.
func (r *blogPostRepository) GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return r.getOne(ctx, `WHERE slug = ?`, slug)
}

func (r *blogPostRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.BlogPost, error) {
	query := `
		SELECT id, title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at
		FROM blog_posts ` + where

	b, err := scanBlogPost(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBlogPostNotFound
		}
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	return b, nil
}

// Update rewrites a blog post row.
func (r *blogPostRepository) Update(ctx context.Context, b *domain.BlogPost) error {
	b.UpdatedAt = time.Now().UTC()

	publishedAt := ""
	if !b.PublishedAt.IsZero() {
		publishedAt = b.PublishedAt.UTC().Format(time.RFC3339)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE blog_posts
		SET title = ?, slug = ?, meta_description = ?, thumbnail = ?,
			short_description = ?, full_description = ?, is_published = ?, published_at = ?, updated_at = ?
		WHERE id = ?
	`,
		b.Title, b.Slug, b.MetaDescription, b.Thumbnail,
		b.ShortDescription, b.FullDescription, boolToInt(b.IsPublished), publishedAt,
		b.UpdatedAt.Format(time.RFC3339), b.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrBlogPostNotFound
	}
	return nil
}

// Delete removes a blog post.
func (r *blogPostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrBlogPostNotFound
	}
	return nil
}

// List returns blog posts newest first.
func (r *blogPostRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.BlogPost, error) {
	query := `
		SELECT id, title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at
		FROM blog_posts
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.BlogPost
	for rows.Next() {
		b, err := scanBlogPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		posts = append(posts, b)
	}
	return posts, rows.Err()
}

// ListOwners returns every blog post as an ImageOwner for corpus scans.
func (r *blogPostRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	posts, err := r.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, err
	}
	owners := make([]domain.ImageOwner, len(posts))
	for i, b := range posts {
		owners[i] = b
	}
	return owners, nil
}

func scanBlogPost(row rowScanner) (*domain.BlogPost, error) {
	b := &domain.BlogPost{}
	var isPublished int
	var publishedAt, createdAt, updatedAt string

	err := row.Scan(
		&b.ID, &b.Title, &b.Slug, &b.MetaDescription, &b.Thumbnail,
		&b.ShortDescription, &b.FullDescription, &isPublished, &publishedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.IsPublished = isPublished != 0
	if publishedAt != "" {
		b.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return b, nil
}

// Ensure blogPostRepository implements repository.BlogPostRepository.
var _ repository.BlogPostRepository = (*blogPostRepository)(nil)
