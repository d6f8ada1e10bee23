package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// topicRepository implements repository.TopicRepository for PostgreSQL.
type topicRepository struct {
	db *DB
}

// NewTopicRepository creates a new PostgreSQL topic repository.
func NewTopicRepository(db *DB) repository.TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) EntityType() string {
	return domain.EntityTypeTopic
}

func (r *topicRepository) Create(ctx context.Context, t *domain.Topic) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO topics (category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		t.CategoryID, t.Title, t.Slug, t.MetaDescription,
		t.ShortDescription.SrLatn, t.ShortDescription.SrCyrl, t.ShortDescription.En,
		t.FullDescription.SrLatn, t.FullDescription.SrCyrl, t.FullDescription.En,
		now, now,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert topic: %w", err)
	}
	return nil
}

func (r *topicRepository) GetByID(ctx context.Context, id int64) (*domain.Topic, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *topicRepository) GetBySlug(ctx context.Context, slug string) (*domain.Topic, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *topicRepository) getOne(ctx context.Context, where string, arg any) (*domain.Topic, error) {
	query := `
		SELECT id, category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at
		FROM topics ` + where

	t, err := scanTopic(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return t, nil
}

func (r *topicRepository) Update(ctx context.Context, t *domain.Topic) error {
	t.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE topics
		SET category_id = $1, title = $2, slug = $3, meta_description = $4,
			short_description = $5, short_description_sr_cyrl = $6, short_description_en = $7,
			full_description = $8, full_description_sr_cyrl = $9, full_description_en = $10,
			updated_at = $11
		WHERE id = $12
	`,
		t.CategoryID, t.Title, t.Slug, t.MetaDescription,
		t.ShortDescription.SrLatn, t.ShortDescription.SrCyrl, t.ShortDescription.En,
		t.FullDescription.SrLatn, t.FullDescription.SrCyrl, t.FullDescription.En,
		t.UpdatedAt, t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

func (r *topicRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

func (r *topicRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Topic, error) {
	query := `
		SELECT id, category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at
		FROM topics
		ORDER BY created_at DESC
	`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// ListOwners returns every topic as an ImageOwner for corpus scans.
func (r *topicRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	topics, err := r.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, err
	}
	owners := make([]domain.ImageOwner, len(topics))
	for i, t := range topics {
		owners[i] = t
	}
	return owners, nil
}

func scanTopic(row pgx.Row) (*domain.Topic, error) {
	t := &domain.Topic{}
	err := row.Scan(
		&t.ID, &t.CategoryID, &t.Title, &t.Slug, &t.MetaDescription,
		&t.ShortDescription.SrLatn, &t.ShortDescription.SrCyrl, &t.ShortDescription.En,
		&t.FullDescription.SrLatn, &t.FullDescription.SrCyrl, &t.FullDescription.En,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// Ensure topicRepository implements repository.TopicRepository.
var _ repository.TopicRepository = (*topicRepository)(nil)
