package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// productRepository implements repository.ProductRepository for PostgreSQL.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new PostgreSQL product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) EntityType() string {
	return domain.EntityTypeProduct
}

// Create inserts a product together with its gallery and patterns.
func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		p.CreatedAt = now
		p.UpdatedAt = now

		err := tx.QueryRow(ctx, `
			INSERT INTO products (category_id, name, slug, price_cents, meta_description,
				thumbnail, short_description, full_description, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`,
			p.CategoryID, p.Name, p.Slug, p.PriceCents, p.MetaDescription,
			p.Thumbnail, p.ShortDescription, p.FullDescription, p.IsActive, now, now,
		).Scan(&p.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlugAlreadyExists
			}
			return fmt.Errorf("failed to insert product: %w", err)
		}

		return r.replaceAttachments(ctx, tx, p)
	})
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *productRepository) getOne(ctx context.Context, where string, arg any) (*domain.Product, error) {
	query := `
		SELECT id, category_id, name, slug, price_cents, meta_description,
			thumbnail, short_description, full_description, is_active, created_at, updated_at
		FROM products ` + where

	p, err := scanProduct(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
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
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		p.UpdatedAt = time.Now().UTC()

		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET category_id = $1, name = $2, slug = $3, price_cents = $4, meta_description = $5,
				thumbnail = $6, short_description = $7, full_description = $8, is_active = $9, updated_at = $10
			WHERE id = $11
		`,
			p.CategoryID, p.Name, p.Slug, p.PriceCents, p.MetaDescription,
			p.Thumbnail, p.ShortDescription, p.FullDescription, p.IsActive, p.UpdatedAt, p.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlugAlreadyExists
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProductNotFound
		}

		return r.replaceAttachments(ctx, tx, p)
	})
}

// Delete removes a product; attachments cascade.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
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

func (r *productRepository) replaceAttachments(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear product images: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_patterns WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear product patterns: %w", err)
	}

	for i := range p.Images {
		img := &p.Images[i]
		img.ProductID = p.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO product_images (product_id, path, sort_order) VALUES ($1, $2, $3) RETURNING id`,
			p.ID, img.Path, img.SortOrder).Scan(&img.ID)
		if err != nil {
			return fmt.Errorf("failed to insert product image: %w", err)
		}
	}

	for i := range p.Patterns {
		pat := &p.Patterns[i]
		pat.ProductID = p.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO product_patterns (product_id, name, path) VALUES ($1, $2, $3) RETURNING id`,
			p.ID, pat.Name, pat.Path).Scan(&pat.ID)
		if err != nil {
			return fmt.Errorf("failed to insert product pattern: %w", err)
		}
	}
	return nil
}

func (r *productRepository) loadAttachments(ctx context.Context, p *domain.Product) error {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, product_id, path, sort_order FROM product_images WHERE product_id = $1 ORDER BY sort_order, id`,
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

	patternRows, err := r.db.Pool.Query(ctx,
		`SELECT id, product_id, name, path FROM product_patterns WHERE product_id = $1 ORDER BY id`,
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

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.PriceCents, &p.MetaDescription,
		&p.Thumbnail, &p.ShortDescription, &p.FullDescription, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// Ensure productRepository implements repository.ProductRepository.
var _ repository.ProductRepository = (*productRepository)(nil)
