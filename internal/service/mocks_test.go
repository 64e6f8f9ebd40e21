package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/events"
	"github.com/phrazzld/product-catalog-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository mocks the ProductRepository interface
type MockProductRepository struct {
	mock.Mock
	db *sql.DB
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(
	ctx context.Context,
	filter store.ProductFilter,
	page store.Pagination,
) ([]*domain.Product, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	args := m.Called(ctx, id, patch, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	args := m.Called(ctx, id, expectedVersion)
	return args.Error(0)
}

// WithTx returns the same mock so expectations carry over into the transaction.
func (m *MockProductRepository) WithTx(tx *sql.Tx) ProductRepository {
	return m
}

func (m *MockProductRepository) DB() *sql.DB {
	return m.db
}

// MockEventEmitter records emitted events.
type MockEventEmitter struct {
	mu     sync.Mutex
	Events []*events.ProductEvent
	Err    error
}

func (e *MockEventEmitter) EmitEvent(ctx context.Context, event *events.ProductEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Events = append(e.Events, event)
	return e.Err
}

func (e *MockEventEmitter) Emitted() []*events.ProductEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*events.ProductEvent, len(e.Events))
	copy(out, e.Events)
	return out
}

// MockFailureRecorder counts recorded publish failures by event type.
type MockFailureRecorder struct {
	mu     sync.Mutex
	Counts map[string]int
}

func (r *MockFailureRecorder) RecordPublishFailure(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	r.Counts[eventType]++
}

// memoryRepository is a concurrency-safe in-memory ProductRepository with
// the same versioning rules as the SQL store.
type memoryRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{products: map[uuid.UUID]domain.Product{}}
}

func (r *memoryRepository) Create(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; ok {
		return store.ErrDuplicate
	}
	r.products[product.ID] = *product
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return &p, nil
}

func (r *memoryRepository) List(
	_ context.Context,
	_ store.ProductFilter,
	_ store.Pagination,
) ([]*domain.Product, error) {
	return nil, errors.New("not supported")
}

func (r *memoryRepository) Update(
	_ context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	if current.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	updated, err := current.ApplyPatch(patch, current.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.products[id] = *updated
	return updated, nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.products[id]
	if !ok {
		return store.ErrProductNotFound
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepository) WithTx(*sql.Tx) ProductRepository { return r }

func (r *memoryRepository) DB() *sql.DB { return nil }
