package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Pagination bounds for product listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	// NameContains matches names case-insensitively.
	NameContains string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
}

// Pagination selects a window of an ordered listing.
type Pagination struct {
	Offset int
	Limit  int
}

// Normalize clamps the pagination to the supported range.
func (p Pagination) Normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// ProductStore defines the interface for product data persistence.
// Update and Delete are atomic with respect to the version check: they
// never overwrite a row whose version differs from expectedVersion.
type ProductStore interface {
	// Create saves a new product.
	// Returns ErrDuplicate if a product with the same ID exists.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique ID.
	// Returns ErrProductNotFound if the product does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// List returns the products matching filter, ordered by creation time
	// (ties broken by ID). Returns an empty slice when nothing matches.
	List(ctx context.Context, filter ProductFilter, page Pagination) ([]*domain.Product, error)

	// Update applies patch to the product if its stored version equals
	// expectedVersion, incrementing the version by one.
	// Returns ErrProductNotFound if the product does not exist and
	// ErrVersionConflict if the version does not match.
	Update(
		ctx context.Context,
		id uuid.UUID,
		patch domain.ProductPatch,
		expectedVersion int,
	) (*domain.Product, error)

	// Delete permanently removes the product if its stored version equals
	// expectedVersion. Errors as for Update.
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// WithTx returns a new ProductStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ProductStore

	// DB returns the underlying connection pool, used to begin transactions.
	DB() *sql.DB
}
