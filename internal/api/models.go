package api

import (
	"time"

	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name          string           `json:"name"           validate:"required,max=255"`
	Description   string           `json:"description"    validate:"max=1000"`
	Price         *decimal.Decimal `json:"price"          validate:"required"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
}

// UpdateProductRequest is the body of PUT /products/{id}. Omitted fields
// keep their stored value; an empty description clears it.
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty"           validate:"omitempty,max=255"`
	Description   *string          `json:"description,omitempty"    validate:"omitempty,max=1000"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	// ExpectedVersion may instead be supplied through If-Match.
	ExpectedVersion *int `json:"expected_version,omitempty" validate:"omitempty,gte=0"`
}

// AdjustStockRequest is the body of POST /products/{id}/stock.
type AdjustStockRequest struct {
	Delta           *int `json:"delta"            validate:"required"`
	ExpectedVersion *int `json:"expected_version" validate:"omitempty,gte=0"`
}

// ProductResponse is the JSON shape of a product. Price is rendered as a
// decimal string with two fractional digits.
type ProductResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductListResponse is the JSON shape of GET /products.
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}

func (req CreateProductRequest) toInput() domain.NewProductInput {
	input := domain.NewProductInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Price != nil {
		input.Price = *req.Price
	}
	if req.StockQuantity != nil {
		input.StockQuantity = *req.StockQuantity
	}
	return input
}

func (req UpdateProductRequest) toPatch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	}
}

func productToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.StringFixed(domain.PriceScale),
		StockQuantity: p.StockQuantity,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
