package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/repository"
)

// =============================================================================
// Mock Repository Types for CatalogService
// =============================================================================

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) EntityType() string { return domain.EntityTypeProduct }

func (m *mockProductRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImageOwner), args.Error(1)
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Product, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) EntityType() string { return domain.EntityTypeCategory }

func (m *mockCategoryRepository) ListOwners(ctx context.Context) ([]domain.ImageOwner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImageOwner), args.Error(1)
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCategoryRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Category, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func newCatalogFixture(t *testing.T) (*CatalogService, *mockProductRepository, *mockCategoryRepository, *fakeLedger, *fakeBackend) {
	t.Helper()
	products := &mockProductRepository{}
	categories := &mockCategoryRepository{}
	ledger := newFakeLedger()
	backend := newFakeBackend()
	reconciler := NewReconciler(
		ledger,
		backend,
		[]repository.ContentSource{products, categories},
		lock.NewNoOpLocker(),
		DefaultReconcilerConfig(),
		zerolog.Nop(),
	)
	svc := NewCatalogService(products, categories, reconciler, zerolog.Nop())
	return svc, products, categories, ledger, backend
}

func TestCreateProductReconcilesUploads(t *testing.T) {
	svc, products, categories, ledger, backend := newCatalogFixture(t)
	ctx := context.Background()

	ledger.addUnused("uploads/used.jpg", time.Minute)
	ledger.addUnused("uploads/abandoned.jpg", time.Minute)
	backend.blobs["uploads/used.jpg"] = []byte("x")
	backend.blobs["uploads/abandoned.jpg"] = []byte("x")

	product := &domain.Product{
		ID:              1,
		Name:            "Wall panel",
		FullDescription: imgHTML("uploads/used.jpg"),
	}

	products.On("Create", ctx, product).Return(nil)
	products.On("ListOwners", ctx).Return([]domain.ImageOwner{product}, nil)
	categories.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil)

	err := svc.CreateProduct(ctx, product, SaveContext{
		SessionUploads: []string{"uploads/used.jpg", "uploads/abandoned.jpg"},
	})
	require.NoError(t, err)

	row, err := ledger.Get(ctx, "uploads/used.jpg")
	require.NoError(t, err)
	require.True(t, row.ClaimedBy(domain.EntityTypeProduct, 1))

	require.False(t, backend.has("uploads/abandoned.jpg"))
	products.AssertExpectations(t)
}

func TestCreateProductRepositoryError(t *testing.T) {
	svc, products, _, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	product := &domain.Product{Name: "broken"}
	products.On("Create", ctx, product).Return(errors.New("constraint violation"))

	err := svc.CreateProduct(ctx, product, SaveContext{})
	require.Error(t, err)
	products.AssertExpectations(t)
}

func TestUpdateProductReconcilesRemovals(t *testing.T) {
	svc, products, categories, ledger, backend := newCatalogFixture(t)
	ctx := context.Background()

	ledger.addUsed("uploads/dropped.jpg", domain.EntityTypeProduct, 1, time.Hour)
	backend.blobs["uploads/dropped.jpg"] = []byte("x")

	previous := &domain.Product{ID: 1, FullDescription: imgHTML("uploads/dropped.jpg")}
	updated := &domain.Product{ID: 1, FullDescription: "<p>image removed</p>"}

	products.On("GetByID", ctx, int64(1)).Return(previous, nil)
	products.On("Update", ctx, updated).Return(nil)
	products.On("ListOwners", ctx).Return([]domain.ImageOwner{updated}, nil)
	categories.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil)

	require.NoError(t, svc.UpdateProduct(ctx, updated, SaveContext{}))

	require.False(t, backend.has("uploads/dropped.jpg"))
	products.AssertExpectations(t)
}

func TestUpdateProductLoadFailureSkipsWrite(t *testing.T) {
	svc, products, _, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(7)).Return(nil, repository.ErrNotFound)

	err := svc.UpdateProduct(ctx, &domain.Product{ID: 7}, SaveContext{})
	require.ErrorIs(t, err, repository.ErrNotFound)
	products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDeleteProductReclaimsOwnedImages(t *testing.T) {
	svc, products, categories, _, backend := newCatalogFixture(t)
	ctx := context.Background()

	backend.blobs["uploads/thumb.jpg"] = []byte("x")
	backend.blobs["uploads/gallery.jpg"] = []byte("x")

	product := &domain.Product{
		ID:        2,
		Thumbnail: "uploads/thumb.jpg",
		Images:    []domain.ProductImage{{Path: "uploads/gallery.jpg"}},
	}

	products.On("GetByID", ctx, int64(2)).Return(product, nil)
	products.On("Delete", ctx, int64(2)).Return(nil)
	products.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil).Maybe()
	categories.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil).Maybe()

	require.NoError(t, svc.DeleteProduct(ctx, 2))

	require.False(t, backend.has("uploads/thumb.jpg"))
	require.False(t, backend.has("uploads/gallery.jpg"))
	products.AssertExpectations(t)
}

func TestReconcileFailureDoesNotFailSave(t *testing.T) {
	// Losing the reconcile pass leaks at worst a blob; the content
	// write must still succeed.
	svc, products, categories, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	product := &domain.Product{ID: 3, FullDescription: "<p>plain</p>"}

	products.On("Create", ctx, product).Return(nil)
	products.On("ListOwners", ctx).Return(nil, errors.New("connection refused"))
	categories.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil).Maybe()

	require.NoError(t, svc.CreateProduct(ctx, product, SaveContext{}))
	products.AssertExpectations(t)
}

func TestDeleteCategoryReclaimsThumbnail(t *testing.T) {
	svc, products, categories, _, backend := newCatalogFixture(t)
	ctx := context.Background()

	backend.blobs["uploads/cat.jpg"] = []byte("x")
	category := &domain.Category{ID: 4, Name: "Panels", Thumbnail: "uploads/cat.jpg"}

	categories.On("GetByID", ctx, int64(4)).Return(category, nil)
	categories.On("Delete", ctx, int64(4)).Return(nil)
	products.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil).Maybe()
	categories.On("ListOwners", ctx).Return([]domain.ImageOwner{}, nil).Maybe()

	require.NoError(t, svc.DeleteCategory(ctx, 4))
	require.False(t, backend.has("uploads/cat.jpg"))
	categories.AssertExpectations(t)
}
