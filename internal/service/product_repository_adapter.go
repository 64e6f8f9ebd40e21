package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/store"
)

// NewProductRepositoryAdapter creates a new adapter that allows a store.ProductStore
// to be used where a ProductRepository is expected.
func NewProductRepositoryAdapter(productStore store.ProductStore) ProductRepository {
	return &productRepositoryAdapter{productStore: productStore}
}

// productRepositoryAdapter adapts a store.ProductStore to the ProductRepository interface
type productRepositoryAdapter struct {
	productStore store.ProductStore
}

// Create implements ProductRepository.Create
func (a *productRepositoryAdapter) Create(ctx context.Context, product *domain.Product) error {
	return a.productStore.Create(ctx, product)
}

// GetByID implements ProductRepository.GetByID
func (a *productRepositoryAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return a.productStore.GetByID(ctx, id)
}

// List implements ProductRepository.List
func (a *productRepositoryAdapter) List(
	ctx context.Context,
	filter store.ProductFilter,
	page store.Pagination,
) ([]*domain.Product, error) {
	return a.productStore.List(ctx, filter, page)
}

// Update implements ProductRepository.Update
func (a *productRepositoryAdapter) Update(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	return a.productStore.Update(ctx, id, patch, expectedVersion)
}

// Delete implements ProductRepository.Delete
func (a *productRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	return a.productStore.Delete(ctx, id, expectedVersion)
}

// WithTx implements ProductRepository.WithTx
func (a *productRepositoryAdapter) WithTx(tx *sql.Tx) ProductRepository {
	return &productRepositoryAdapter{productStore: a.productStore.WithTx(tx)}
}

// DB implements ProductRepository.DB
func (a *productRepositoryAdapter) DB() *sql.DB {
	return a.productStore.DB()
}
