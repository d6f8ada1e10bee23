package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// categoryRepository implements repository.CategoryRepository for PostgreSQL.
type categoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new PostgreSQL category repository.
func NewCategoryRepository(db *DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) EntityType() string {
	return domain.EntityTypeCategory
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, thumbnail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.Name, c.Slug, c.Thumbnail, now, now).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *categoryRepository) getOne(ctx context.Context, where string, arg any) (*domain.Category, error) {
	query := `SELECT id, name, slug, thumbnail, created_at, updated_at FROM categories ` + where

	c, err := scanCategory(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE categories SET name = $1, slug = $2, thumbnail = $3, updated_at = $4 WHERE id = $5
	`, c.Name, c.Slug, c.Thumbnail, c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Category, error) {
	query := `SELECT id, name, slug, thumbnail, created_at, updated_at FROM categories ORDER BY name`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListOwners returns every category as an ImageOwner for corpus scans.
func (r *categoryRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	categories, err := r.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, err
	}
	owners := make([]domain.ImageOwner, len(categories))
	for i, c := range categories {
		owners[i] = c
	}
	return owners, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	c := &domain.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Thumbnail, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// Ensure categoryRepository implements repository.CategoryRepository.
var _ repository.CategoryRepository = (*categoryRepository)(nil)
