package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// BlogService manages blog posts and knowledge-base topics, with the
// same post-commit reconcile discipline as the catalog.
type BlogService struct {
	posts      repository.BlogPostRepository
	topics     repository.TopicRepository
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewBlogService creates the blog service.
func NewBlogService(
	posts repository.BlogPostRepository,
	topics repository.TopicRepository,
	reconciler *Reconciler,
	logger zerolog.Logger,
) *BlogService {
	return &BlogService{
		posts:      posts,
		topics:     topics,
		reconciler: reconciler,
		logger:     logger.With().Str("service", "blog").Logger(),
	}
}

func (s *BlogService) CreatePost(ctx context.Context, b *domain.BlogPost, save SaveContext) error {
	if err := s.posts.Create(ctx, b); err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         b,
		IsNew:          true,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *BlogService) UpdatePost(ctx context.Context, b *domain.BlogPost, save SaveContext) error {
	previous, err := s.posts.GetByID(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("failed to load blog post: %w", err)
	}
	if err := s.posts.Update(ctx, b); err != nil {
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         b,
		Previous:       previous,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *BlogService) DeletePost(ctx context.Context, id int64) error {
	b, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load blog post: %w", err)
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	s.reconcileDeleted(ctx, b)
	return nil
}

func (s *BlogService) GetPost(ctx context.Context, id int64) (*domain.BlogPost, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *BlogService) GetPostBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return s.posts.GetBySlug(ctx, slug)
}

func (s *BlogService) ListPosts(ctx context.Context, opts repository.ListOptions) ([]*domain.BlogPost, error) {
	return s.posts.List(ctx, opts)
}

func (s *BlogService) CreateTopic(ctx context.Context, t *domain.Topic, save SaveContext) error {
	if err := s.topics.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         t,
		IsNew:          true,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *BlogService) UpdateTopic(ctx context.Context, t *domain.Topic, save SaveContext) error {
	previous, err := s.topics.GetByID(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}
	if err := s.topics.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         t,
		Previous:       previous,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *BlogService) DeleteTopic(ctx context.Context, id int64) error {
	t, err := s.topics.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}
	if err := s.topics.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	s.reconcileDeleted(ctx, t)
	return nil
}

func (s *BlogService) GetTopic(ctx context.Context, id int64) (*domain.Topic, error) {
	return s.topics.GetByID(ctx, id)
}

func (s *BlogService) ListTopics(ctx context.Context, opts repository.ListOptions) ([]*domain.Topic, error) {
	return s.topics.List(ctx, opts)
}

func (s *BlogService) reconcileSaved(ctx context.Context, input SaveInput) {
	if err := s.reconciler.EntitySaved(ctx, input); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", input.Entity.EntityType()).
			Int64("entity_id", input.Entity.EntityID()).
			Msg("media reconcile after save failed")
	}
}

func (s *BlogService) reconcileDeleted(ctx context.Context, entity domain.ImageOwner) {
	if err := s.reconciler.EntityDeleted(ctx, entity); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", entity.EntityType()).
			Int64("entity_id", entity.EntityID()).
			Msg("media reconcile after delete failed")
	}
}
