package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/events"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/store"
)

// ProductRepository defines the repository interface for the service layer
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter store.ProductFilter, page store.Pagination) ([]*domain.Product, error)
	Update(
		ctx context.Context,
		id uuid.UUID,
		patch domain.ProductPatch,
		expectedVersion int,
	) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) ProductRepository

	// DB returns the underlying database connection, or nil when the
	// repository is not transactional
	DB() *sql.DB
}

// ProductService provides product-related operations
type ProductService interface {
	// CreateProduct validates input, persists a new product at version 0 and
	// emits product.created.
	CreateProduct(ctx context.Context, input domain.NewProductInput) (*domain.Product, error)

	// GetProduct retrieves a product by its ID
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// ListProducts returns a filtered, paginated listing
	ListProducts(
		ctx context.Context,
		filter store.ProductFilter,
		page store.Pagination,
	) ([]*domain.Product, error)

	// UpdateProduct applies patch if the product is still at expectedVersion
	// and emits product.updated.
	UpdateProduct(
		ctx context.Context,
		id uuid.UUID,
		patch domain.ProductPatch,
		expectedVersion int,
	) (*domain.Product, error)

	// DeleteProduct removes the product if it is still at expectedVersion
	// and emits product.deleted.
	DeleteProduct(ctx context.Context, id uuid.UUID, expectedVersion int) error

	// AdjustStock adds delta (possibly negative) to the stock quantity if the
	// product is still at expectedVersion and emits product.updated.
	AdjustStock(
		ctx context.Context,
		id uuid.UUID,
		delta int,
		expectedVersion int,
	) (*domain.Product, error)
}

// productServiceImpl implements the ProductService interface
type productServiceImpl struct {
	repo     ProductRepository
	emitter  events.EventEmitter
	recorder events.FailureRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewProductService creates a new ProductService.
// It returns an error if any of the required dependencies are nil.
// recorder may be nil.
func NewProductService(
	repo ProductRepository,
	emitter events.EventEmitter,
	recorder events.FailureRecorder,
	logger *slog.Logger,
) (ProductService, error) {
	if repo == nil {
		return nil, domain.NewValidationError("repo", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	}
	if recorder == nil {
		recorder = events.FailureRecorderFunc(func(string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &productServiceImpl{
		repo:     repo,
		emitter:  emitter,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "product_service")),
		now:      time.Now,
	}, nil
}

// CreateProduct implements ProductService.CreateProduct
func (s *productServiceImpl) CreateProduct(
	ctx context.Context,
	input domain.NewProductInput,
) (*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	product, err := domain.NewProduct(input)
	if err != nil {
		log.Debug("rejected invalid product", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, s.wrap("create", "failed to save product", err)
	}

	log.Info("product created",
		slog.String("product_id", product.ID.String()),
		slog.Int("version", product.Version))

	s.emit(ctx, events.NewProductEvent(events.ProductCreated, product))
	return product, nil
}

// GetProduct implements ProductService.GetProduct
func (s *productServiceImpl) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get", "failed to retrieve product", err)
	}
	return product, nil
}

// ListProducts implements ProductService.ListProducts
func (s *productServiceImpl) ListProducts(
	ctx context.Context,
	filter store.ProductFilter,
	page store.Pagination,
) ([]*domain.Product, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, domain.NewValidationError("min_price", "cannot exceed max_price", nil)
	}

	products, err := s.repo.List(ctx, filter, page.Normalize())
	if err != nil {
		return nil, s.wrap("list", "failed to list products", err)
	}
	return products, nil
}

// UpdateProduct implements ProductService.UpdateProduct
// The current record is loaded and checked inside the same transaction as
// the versioned write; the write itself still enforces the version.
func (s *productServiceImpl) UpdateProduct(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("product_id", id.String()),
		slog.Int("expected_version", expectedVersion))

	if patch.IsEmpty() {
		return nil, domain.NewValidationError("", "update contains no fields", ErrEmptyUpdate)
	}

	var updated *domain.Product
	err := s.inTx(ctx, func(ctx context.Context, repo ProductRepository) error {
		current, err := s.loadAtVersion(ctx, repo, id, expectedVersion)
		if err != nil {
			return err
		}

		if _, err := current.ApplyPatch(patch, s.now()); err != nil {
			return err
		}

		updated, err = repo.Update(ctx, id, patch, expectedVersion)
		return err
	})
	if err != nil {
		return nil, s.wrap("update", "failed to update product", err)
	}

	log.Info("product updated", slog.Int("version", updated.Version))
	s.emit(ctx, events.NewProductEvent(events.ProductUpdated, updated))
	return updated, nil
}

// DeleteProduct implements ProductService.DeleteProduct
func (s *productServiceImpl) DeleteProduct(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("product_id", id.String()),
		slog.Int("expected_version", expectedVersion))

	if err := s.repo.Delete(ctx, id, expectedVersion); err != nil {
		return s.wrap("delete", "failed to delete product", err)
	}

	log.Info("product deleted")
	s.emit(ctx, events.NewProductDeletedEvent(id))
	return nil
}

// AdjustStock implements ProductService.AdjustStock
func (s *productServiceImpl) AdjustStock(
	ctx context.Context,
	id uuid.UUID,
	delta int,
	expectedVersion int,
) (*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("product_id", id.String()),
		slog.Int("delta", delta))

	var updated *domain.Product
	err := s.inTx(ctx, func(ctx context.Context, repo ProductRepository) error {
		current, err := s.loadAtVersion(ctx, repo, id, expectedVersion)
		if err != nil {
			return err
		}

		if delta > 0 && current.StockQuantity > domain.MaxStockQuantity-delta {
			return domain.NewValidationError("delta", "would exceed the maximum stock quantity", nil)
		}
		stock := current.StockQuantity + delta
		if stock < 0 {
			return fmt.Errorf("%w: %d in stock, adjustment %d",
				ErrInsufficientStock, current.StockQuantity, delta)
		}

		updated, err = repo.Update(ctx, id, domain.ProductPatch{StockQuantity: &stock}, expectedVersion)
		return err
	})
	if err != nil {
		return nil, s.wrap("adjust_stock", "failed to adjust stock", err)
	}

	log.Info("product stock adjusted",
		slog.Int("stock_quantity", updated.StockQuantity),
		slog.Int("version", updated.Version))
	s.emit(ctx, events.NewProductEvent(events.ProductUpdated, updated))
	return updated, nil
}

// loadAtVersion fetches the product and fails fast when the caller's version is stale.
func (s *productServiceImpl) loadAtVersion(
	ctx context.Context,
	repo ProductRepository,
	id uuid.UUID,
	expectedVersion int,
) (*domain.Product, error) {
	current, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: product %s is at version %d, expected %d",
			store.ErrVersionConflict, id, current.Version, expectedVersion)
	}
	return current, nil
}

// inTx runs fn with a transaction-bound repository. Repositories without a
// database run fn directly.
func (s *productServiceImpl) inTx(
	ctx context.Context,
	fn func(ctx context.Context, repo ProductRepository) error,
) error {
	db := s.repo.DB()
	if db == nil {
		return fn(ctx, s.repo)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.repo.WithTx(tx))
	})
}

// emit hands the event to the emitter. Failures are downgraded to a warning
// and a metric; the mutation has already committed.
func (s *productServiceImpl) emit(ctx context.Context, event *events.ProductEvent) {
	if err := s.emitter.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit product event",
			slog.String("event_id", event.EventID.String()),
			slog.String("event_type", string(event.EventType)),
			slog.String("product_id", event.ProductID.String()),
			slog.String("error", err.Error()))
		s.recorder.RecordPublishFailure(string(event.EventType))
	}
}

// wrap passes expected conditions through untouched and wraps the rest.
func (s *productServiceImpl) wrap(operation, message string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, ErrInsufficientStock):
		return err
	}
	return NewProductServiceError(operation, message, err)
}
