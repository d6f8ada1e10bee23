package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// productRepository implements repository.ProductRepository for SQLite.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// EntityType returns the content type this repository serves.
func (r *productRepository) EntityType() string {
	return domain.EntityTypeProduct
}

// Create inserts a product together with its gallery and patterns.
func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		p.CreatedAt = now
		p.UpdatedAt = now

		result, err := tx.ExecContext(ctx, `
			INSERT INTO products (category_id, name, slug, price_cents, meta_description,
				thumbnail, short_description, full_description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.CategoryID, p.Name, p.Slug, p.PriceCents, p.MetaDescription,
			p.Thumbnail, p.ShortDescription, p.FullDescription, boolToInt(p.IsActive),
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlugAlreadyExists
			}
			return fmt.Errorf("failed to insert product: %w", err)
		}

		p.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get product id: %w", err)
		}

		return r.replaceAttachments(ctx, tx, p)
	})
}

// GetByID retrieves a product with its attachments.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetBySlug retrieves a product by slug with its attachments.
func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, `WHERE slug = ?`, slug)
}

func (r *productRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Product, error) {
	query := `
		SELECT id, category_id, name, slug, price_cents, meta_description,
			thumbnail, short_description, full_description, is_active, created_at, updated_at
		FROM products ` + where

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := r.loadAttachments(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update rewrites the product row and replaces its attachments.
func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		p.UpdatedAt = time.Now().UTC()

		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET category_id = ?, name = ?, slug = ?, price_cents = ?, meta_description = ?,
				thumbnail = ?, short_description = ?, full_description = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`,
			p.CategoryID, p.Name, p.Slug, p.PriceCents, p.MetaDescription,
			p.Thumbnail, p.ShortDescription, p.FullDescription, boolToInt(p.IsActive),
			p.UpdatedAt.Format(time.RFC3339), p.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlugAlreadyExists
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return domain.ErrProductNotFound
		}

		return r.replaceAttachments(ctx, tx, p)
	})
}

// Delete removes a product; attachments cascade.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// List returns products ordered by creation time, newest first.
func (r *productRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Product, error) {
	query := `
		SELECT id, category_id, name, slug, price_cents, meta_description,
			thumbnail, short_description, full_description, is_active, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	for _, p := range products {
		if err := r.loadAttachments(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// ListOwners returns every product as an ImageOwner for corpus scans.
func (r *productRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	products, err := r.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, err
	}
	owners := make([]domain.ImageOwner, len(products))
	for i, p := range products {
		owners[i] = p
	}
	return owners, nil
}

// replaceAttachments rewrites gallery and pattern rows inside tx.
func (r *productRepository) replaceAttachments(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_images WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear product images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_patterns WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear product patterns: %w", err)
	}

	for i := range p.Images {
		img := &p.Images[i]
		img.ProductID = p.ID
		result, err := tx.ExecContext(ctx,
			`INSERT INTO product_images (product_id, path, sort_order) VALUES (?, ?, ?)`,
			p.ID, img.Path, img.SortOrder)
		if err != nil {
			return fmt.Errorf("failed to insert product image: %w", err)
		}
		img.ID, _ = result.LastInsertId()
	}

	for i := range p.Patterns {
		pat := &p.Patterns[i]
		pat.ProductID = p.ID
		result, err := tx.ExecContext(ctx,
			`INSERT INTO product_patterns (product_id, name, path) VALUES (?, ?, ?)`,
			p.ID, pat.Name, pat.Path)
		if err != nil {
			return fmt.Errorf("failed to insert product pattern: %w", err)
		}
		pat.ID, _ = result.LastInsertId()
	}
	return nil
}

// loadAttachments fills a product's gallery and patterns.
func (r *productRepository) loadAttachments(ctx context.Context, p *domain.Product) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, path, sort_order FROM product_images WHERE product_id = ? ORDER BY sort_order, id`,
		p.ID)
	if err != nil {
		return fmt.Errorf("failed to load product images: %w", err)
	}
	defer rows.Close()

	p.Images = nil
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Path, &img.SortOrder); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		p.Images = append(p.Images, img)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating product images: %w", err)
	}

	patternRows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, name, path FROM product_patterns WHERE product_id = ? ORDER BY id`,
		p.ID)
	if err != nil {
		return fmt.Errorf("failed to load product patterns: %w", err)
	}
	defer patternRows.Close()

	p.Patterns = nil
	for patternRows.Next() {
		var pat domain.ProductPattern
		if err := patternRows.Scan(&pat.ID, &pat.ProductID, &pat.Name, &pat.Path); err != nil {
			return fmt.Errorf("failed to scan product pattern: %w", err)
		}
		p.Patterns = append(p.Patterns, pat)
	}
	return patternRows.Err()
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.PriceCents, &p.MetaDescription,
		&p.Thumbnail, &p.ShortDescription, &p.FullDescription, &isActive,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.IsActive = isActive != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure productRepository implements repository.ProductRepository.
var _ repository.ProductRepository = (*productRepository)(nil)
