package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/service"
)

// ProductHandler handles product-related HTTP requests. Scope checks run in
// middleware before any of these methods.
type ProductHandler struct {
	productService service.ProductService
	logger         *slog.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProductHandler")
	}

	return &ProductHandler{
		productService: productService,
		logger:         logger.With(slog.String("component", "product_handler")),
	}
}

// ListProducts handles GET /products requests.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	products, err := h.productService.ListProducts(r.Context(), filter, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list products")
		return
	}

	page = page.Normalize()
	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Offset:   page.Offset,
		Limit:    page.Limit,
	}
	for _, p := range products {
		resp.Products = append(resp.Products, productToResponse(p))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetProduct handles GET /products/{id} requests.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get product")
		return
	}

	w.Header().Set("ETag", etag(product.Version))
	shared.RespondWithJSON(w, r, http.StatusOK, productToResponse(product))
}

// CreateProduct handles POST /products requests.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateProductRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Debug("invalid create request body", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create product")
		return
	}

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+product.ID.String())
	w.Header().Set("ETag", etag(product.Version))
	shared.RespondWithJSON(w, r, http.StatusCreated, productToResponse(product))
}

// UpdateProduct handles PUT /products/{id} requests. The expected version
// comes from the body's expected_version, the query or If-Match.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateProductRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	version, err := expectedVersion(r, req.ExpectedVersion)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.toPatch(), version)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update product")
		return
	}

	w.Header().Set("ETag", etag(product.Version))
	shared.RespondWithJSON(w, r, http.StatusOK, productToResponse(product))
}

// DeleteProduct handles DELETE /products/{id} requests.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	version, err := expectedVersion(r, nil)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id, version); err != nil {
		HandleAPIError(w, r, err, "Failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock handles POST /products/{id}/stock requests.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req AdjustStockRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	version, err := expectedVersion(r, req.ExpectedVersion)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	product, err := h.productService.AdjustStock(r.Context(), id, *req.Delta, version)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to adjust stock")
		return
	}

	w.Header().Set("ETag", etag(product.Version))
	shared.RespondWithJSON(w, r, http.StatusOK, productToResponse(product))
}
