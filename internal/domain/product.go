package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field limits carried over from the products table definition.
const (
	MaxProductNameLength        = 255
	MaxProductDescriptionLength = 1000
	PriceScale                  = 2

	// MaxStockQuantity is the largest value the INTEGER stock column holds.
	MaxStockQuantity = math.MaxInt32
)

// MaxPrice is the exclusive upper bound of NUMERIC(12,2).
var MaxPrice = decimal.New(1, 10)

// Product is a catalog item. Version is the optimistic-concurrency counter:
// it starts at 0 and grows by exactly one on every committed update.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewProductInput holds the caller-controlled fields of a new product.
type NewProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

// ProductPatch is a partial update. Nil fields are left untouched; an empty
// Description clears the description.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.StockQuantity == nil
}

// NewProduct creates a validated Product with a generated ID, version 0 and
// timestamps set to now (UTC).
func NewProduct(input NewProductInput) (*Product, error) {
	now := time.Now().UTC()
	product := &Product{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if p.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if err := validateName(p.Name); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Description) > MaxProductDescriptionLength {
		return NewValidationError("description", "is too long", nil)
	}
	if strings.ContainsRune(p.Description, 0) {
		return NewValidationError("description", "must not contain NUL characters", nil)
	}
	if p.Price.IsNegative() {
		return NewValidationError("price", "must not be negative", nil)
	}
	if !p.Price.Equal(p.Price.Truncate(PriceScale)) {
		return NewValidationError("price", "must have at most 2 decimal places", nil)
	}
	if p.Price.GreaterThanOrEqual(MaxPrice) {
		return NewValidationError("price", "is too large", nil)
	}
	if p.StockQuantity < 0 {
		return NewValidationError("stock_quantity", "must not be negative", nil)
	}
	if p.StockQuantity > MaxStockQuantity {
		return NewValidationError("stock_quantity", "is too large", nil)
	}
	if p.Version < 0 {
		return NewValidationError("version", "must not be negative", nil)
	}
	return nil
}

// ApplyPatch returns a copy of the product with the patch applied, the
// version incremented and UpdatedAt set to now. The copy is validated; the
// receiver is never modified.
func (p *Product) ApplyPatch(patch ProductPatch, now time.Time) (*Product, error) {
	merged := *p
	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Price != nil {
		merged.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		merged.StockQuantity = *patch.StockQuantity
	}
	merged.Version = p.Version + 1
	merged.UpdatedAt = now.UTC()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return NewValidationError("name", "cannot be empty", nil)
	}
	if utf8.RuneCountInString(trimmed) > MaxProductNameLength {
		return NewValidationError("name", "is too long", nil)
	}
	if strings.ContainsRune(trimmed, 0) {
		return NewValidationError("name", "must not contain NUL characters", nil)
	}
	return nil
}
