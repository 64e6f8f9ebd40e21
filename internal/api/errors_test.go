package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/platform/postgres"
	"github.com/phrazzld/product-catalog-api/internal/service"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
	"github.com/phrazzld/product-catalog-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"nil error", nil, http.StatusInternalServerError, shared.CodeInternal},
		{
			"validation error",
			domain.NewValidationError("price", "must not be negative", nil),
			http.StatusBadRequest, shared.CodeValidation,
		},
		{"malformed body", fmt.Errorf("%w: EOF", shared.ErrInvalidBody), http.StatusBadRequest, shared.CodeValidation},
		{"empty update", service.ErrEmptyUpdate, http.StatusBadRequest, shared.CodeValidation},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest, shared.CodeValidation},
		{
			"value rejected by the database",
			service.NewProductServiceError("create", "failed to create product",
				store.NewStoreError("product", "create", "insert failed",
					postgres.MapError(&pgconn.PgError{Code: "22003"}))),
			http.StatusBadRequest, shared.CodeValidation,
		},
		{
			"NUL rejected by the database",
			store.NewStoreError("product", "update", "update failed",
				postgres.MapError(&pgconn.PgError{Code: "22021"})),
			http.StatusBadRequest, shared.CodeValidation,
		},
		{
			"wrapped authentication error",
			fmt.Errorf("failed to authenticate: %w", auth.ErrInvalidToken),
			http.StatusUnauthorized, shared.CodeUnauthorized,
		},
		{"missing scope", auth.ErrInsufficientScope, http.StatusForbidden, shared.CodeForbidden},
		{"missing token", auth.ErrMissingToken, http.StatusForbidden, shared.CodeForbidden},
		{"not found", store.ErrProductNotFound, http.StatusNotFound, shared.CodeNotFound},
		{
			"not found through service wrapper",
			service.NewProductServiceError("get", "failed", store.ErrProductNotFound),
			http.StatusNotFound, shared.CodeNotFound,
		},
		{"version conflict", store.ErrVersionConflict, http.StatusConflict, shared.CodeVersionConflict},
		{"insufficient stock", service.ErrInsufficientStock, http.StatusConflict, shared.CodeInsufficient},
		{"duplicate", store.ErrDuplicate, http.StatusConflict, shared.CodeDuplicate},
		{
			"store unavailable",
			store.NewStoreError("product", "list", "query failed", store.ErrStoreUnavailable),
			http.StatusServiceUnavailable, shared.CodeStoreUnavailable,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, shared.CodeInternal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			status, code := MapErrorToStatusCode(tc.err)
			assert.Equal(t, tc.expectedStatus, status)
			assert.Equal(t, tc.expectedCode, code)
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{
			"field validation",
			domain.NewValidationError("name", "cannot be empty", nil),
			"Invalid name: cannot be empty",
		},
		{"not found", store.ErrProductNotFound, "Product not found"},
		{"conflict", store.ErrVersionConflict, "Product was modified concurrently; reload and retry"},
		{"expired token", auth.ErrExpiredToken, "Token expired"},
		{
			"internal detail hidden",
			fmt.Errorf("exec failed: %w", errors.New("UPDATE products SET price = $1 WHERE id = $2")),
			"An unexpected error occurred",
		},
		{
			"deeply wrapped detail hidden",
			service.NewProductServiceError("update", "failed to update product",
				fmt.Errorf("tx: %w", errors.New("dial postgres://u:p@db/products"))),
			"An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := validator.New().Struct(&CreateProductRequest{Name: "Espresso"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	msg := SanitizeValidationError(validationErrs)
	assert.Contains(t, msg, "price: required field")
	assert.Contains(t, msg, "stock_quantity: required field")
	assert.NotContains(t, msg, "CreateProductRequest")

	assert.Equal(t, "Validation error", SanitizeValidationError(nil))
}

func TestHandleAPIError_RedactsLogsAndUsesFallback(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	req := httptest.NewRequest(http.MethodPut, "/products/x", nil)
	req = req.WithContext(logger.WithLogger(context.Background(), log))
	rr := httptest.NewRecorder()

	raw := errors.New("query UPDATE products SET name = 'x' WHERE id = 1 via postgres://app:s3cret@db/products")
	HandleAPIError(rr, req, raw, "Failed to update product")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to update product", resp.Error.Message)
	assert.Equal(t, shared.CodeInternal, resp.Error.Code)

	logs := buf.String()
	assert.Contains(t, logs, "API error response")
	assert.NotContains(t, logs, "s3cret")
	assert.NotContains(t, logs, "UPDATE products")
	assert.NotContains(t, rr.Body.String(), "postgres")
}

func TestHandleAPIError_FallbackOnlyFor500(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/x", nil)
	rr := httptest.NewRecorder()

	HandleAPIError(rr, req, store.ErrProductNotFound, "Failed to get product")

	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Product not found", resp.Error.Message)
}
