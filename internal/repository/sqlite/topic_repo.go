package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// topicRepository implements repository.TopicRepository for SQLite.
type topicRepository struct {
	db *DB
}

// NewTopicRepository creates a new SQLite topic repository.
func NewTopicRepository(db *DB) repository.TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) EntityType() string {
	return domain.EntityTypeTopic
}

// Create inserts a topic with all localized fields.
func (r *topicRepository) Create(ctx context.Context, t *domain.Topic) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO topics (category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.CategoryID, t.Title, t.Slug, t.MetaDescription,
		t.ShortDescription.SrLatn, t.ShortDescription.SrCyrl, t.ShortDescription.En,
		t.FullDescription.SrLatn, t.FullDescription.SrCyrl, t.FullDescription.En,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to insert topic: %w", err)
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get topic id: %w", err)
	}
	return nil
}

// GetByID retrieves a topic by ID.
func (r *topicRepository) GetByID(ctx context.Context, id int64) (*domain.Topic, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetBySlug retrieves a topic by slug.
func (r *topicRepository) GetBySlug(ctx context.Context, slug string) (*domain.Topic, error) {
	return r.getOne(ctx, `WHERE slug = ?`, slug)
}

func (r *topicRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Topic, error) {
	query := `
		SELECT id, category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at
		FROM topics ` + where

	t, err := scanTopic(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return t, nil
}

// Update rewrites a topic row.
func (r *topicRepository) Update(ctx context.Context, t *domain.Topic) error {
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE topics
		SET category_id = ?, title = ?, slug = ?, meta_description = ?,
			short_description = ?, short_description_sr_cyrl = ?, short_description_en = ?,
			full_description = ?, full_description_sr_cyrl = ?, full_description_en = ?,
			updated_at = ?
		WHERE id = ?
	`,
		t.CategoryID, t.Title, t.Slug, t.MetaDescription,
		t.ShortDescription.SrLatn, t.ShortDescription.SrCyrl, t.ShortDescription.En,
		t.FullDescription.SrLatn, t.FullDescription.SrCyrl, t.FullDescription.En,
		t.UpdatedAt.Format(time.RFC3339), t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("failed to update topic: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

// Delete removes a topic.
func (r *topicRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

// List returns topics newest first.
func (r *topicRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Topic, error) {
	query := `
		SELECT id, category_id, title, slug, meta_description,
			short_description, short_description_sr_cyrl, short_description_en,
			full_description, full_description_sr_cyrl, full_description_en,
			created_at, updated_at
		FROM topics
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanTopic(row rowScanner) (*domain.Topic, error) {
	t := &domain.Topic{}
	var createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.CategoryID, &t.Title, &t.Slug, &t.MetaDescription,
		&t.ShortDescription.SrLatn, &t.ShortDescription.SrCyrl, &t.ShortDescription.En,
		&t.FullDescription.SrLatn, &t.FullDescription.SrCyrl, &t.FullDescription.En,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

// Ensure topicRepository implements repository.TopicRepository.
var _ repository.TopicRepository = (*topicRepository)(nil)
