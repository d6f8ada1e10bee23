package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// blogPostRepository implements repository.BlogPostRepository for PostgreSQL.
type blogPostRepository struct {
	db *DB
}

// NewBlogPostRepository creates a new PostgreSQL blog post repository.
func NewBlogPostRepository(db *DB) repository.BlogPostRepository {
	return &blogPostRepository{db: db}
}

func (r *blogPostRepository) EntityType() string {
	return domain.EntityTypeBlogPost
}

func (r *blogPostRepository) Create(ctx context.Context, b *domain.BlogPost) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	var publishedAt *time.Time
	if !b.PublishedAt.IsZero() {
		t := b.PublishedAt.UTC()
		publishedAt = &t
	}

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO blog_posts (title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		b.Title, b.Slug, b.MetaDescription, b.Thumbnail,
		b.ShortDescription, b.FullDescription, b.IsPublished, publishedAt, now, now,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert blog post: %w", err)
	}
	return nil
}

func (r *blogPostRepository) GetByID(ctx context.Context, id int64) (*domain.BlogPost, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *blogPostRepository) GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *blogPostRepository) getOne(ctx context.Context, where string, arg any) (*domain.BlogPost, error) {
	query := `
		SELECT id, title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at
		FROM blog_posts ` + where

	b, err := scanBlogPost(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBlogPostNotFound
		}
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	return b, nil
}

func (r *blogPostRepository) Update(ctx context.Context, b *domain.BlogPost) error {
	b.UpdatedAt = time.Now().UTC()

	var publishedAt *time.Time
	if !b.PublishedAt.IsZero() {
		t := b.PublishedAt.UTC()
		publishedAt = &t
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE blog_posts
		SET title = $1, slug = $2, meta_description = $3, thumbnail = $4,
			short_description = $5, full_description = $6, is_published = $7, published_at = $8, updated_at = $9
		WHERE id = $10
	`,
		b.Title, b.Slug, b.MetaDescription, b.Thumbnail,
		b.ShortDescription, b.FullDescription, b.IsPublished, publishedAt, b.UpdatedAt, b.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlogPostNotFound
	}
	return nil
}

func (r *blogPostRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlogPostNotFound
	}
	return nil
}

func (r *blogPostRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.BlogPost, error) {
	query := `
		SELECT id, title, slug, meta_description, thumbnail,
			short_description, full_description, is_published, published_at, created_at, updated_at
		FROM blog_posts
		ORDER BY created_at DESC
	`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
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

func scanBlogPost(row pgx.Row) (*domain.BlogPost, error) {
	b := &domain.BlogPost{}
	var publishedAt *time.Time

	err := row.Scan(
		&b.ID, &b.Title, &b.Slug, &b.MetaDescription, &b.Thumbnail,
		&b.ShortDescription, &b.FullDescription, &b.IsPublished, &publishedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt != nil {
		b.PublishedAt = publishedAt.UTC()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// Ensure blogPostRepository implements repository.BlogPostRepository.
var _ repository.BlogPostRepository = (*blogPostRepository)(nil)
