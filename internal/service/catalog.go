package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

// CatalogService manages products and categories. Every committed save
// and delete is followed by a synchronous media reconcile pass; a
// reconcile failure never fails the content operation, the worst
// outcome is a leaked blob picked up by a later sweep.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	reconciler *Reconciler,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		reconciler: reconciler,
		logger:     logger.With().Str("service", "catalog").Logger(),
	}
}

// SaveContext carries the editing-session information a save hook needs.
type SaveContext struct {
	// SessionUploads lists the paths uploaded during the editing
	// session, nil when unknown.
	SessionUploads []string
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *domain.Product, save SaveContext) error {
	if err := s.products.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         p,
		IsNew:          true,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p *domain.Product, save SaveContext) error {
	previous, err := s.products.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if err := s.products.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         p,
		Previous:       previous,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.reconcileDeleted(ctx, p)
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.products.GetBySlug(ctx, slug)
}

func (s *CatalogService) ListProducts(ctx context.Context, opts repository.ListOptions) ([]*domain.Product, error) {
	return s.products.List(ctx, opts)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *domain.Category, save SaveContext) error {
	if err := s.categories.Create(ctx, c); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         c,
		IsNew:          true,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c *domain.Category, save SaveContext) error {
	previous, err := s.categories.GetByID(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	s.reconcileSaved(ctx, SaveInput{
		Entity:         c,
		Previous:       previous,
		SessionUploads: save.SessionUploads,
	})
	return nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.reconcileDeleted(ctx, c)
	return nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context, opts repository.ListOptions) ([]*domain.Category, error) {
	return s.categories.List(ctx, opts)
}

func (s *CatalogService) reconcileSaved(ctx context.Context, input SaveInput) {
	if err := s.reconciler.EntitySaved(ctx, input); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", input.Entity.EntityType()).
			Int64("entity_id", input.Entity.EntityID()).
			Msg("media reconcile after save failed")
	}
}

func (s *CatalogService) reconcileDeleted(ctx context.Context, entity domain.ImageOwner) {
	if err := s.reconciler.EntityDeleted(ctx, entity); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", entity.EntityType()).
			Int64("entity_id", entity.EntityID()).
			Msg("media reconcile after delete failed")
	}
}
