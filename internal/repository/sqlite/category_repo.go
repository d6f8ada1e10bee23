package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// categoryRepository implements repository.CategoryRepository for SQLite.
type categoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new SQLite category repository.
func NewCategoryRepository(db *DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) EntityType() string {
	return domain.EntityTypeCategory
}

// Create inserts a category.
func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, slug, thumbnail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.Slug, c.Thumbnail, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}

	c.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}
	return nil
}

// GetByID retrieves a category by ID.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetBySlug retrieves a category by slug.
func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE slug = ?`, slug)
}

func (r *categoryRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Category, error) {
	query := `SELECT id, name, slug, thumbnail, created_at, updated_at FROM categories ` + where

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// Update rewrites a category row.
func (r *categoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, slug = ?, thumbnail = ?, updated_at = ? WHERE id = ?
	`, c.Name, c.Slug, c.Thumbnail, c.UpdatedAt.Format(time.RFC3339), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// List returns categories by name.
func (r *categoryRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Category, error) {
	query := `SELECT id, name, slug, thumbnail, created_at, updated_at FROM categories ORDER BY name`
	args := []interface{}{}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	var createdAt, updatedAt string

	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Thumbnail, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

// Ensure categoryRepository implements repository.CategoryRepository.
var _ repository.CategoryRepository = (*categoryRepository)(nil)
