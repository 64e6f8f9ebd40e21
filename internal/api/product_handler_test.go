package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/service"
	"github.com/phrazzld/product-catalog-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *mockProductService) http.Handler {
	return NewRouter(RouterDeps{
		ProductService: svc,
		JWTService:     scopedJWTService(),
	})
}

func doRequest(
	t *testing.T,
	h http.Handler,
	method, path, token, body string,
	headers map[string]string,
) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func sampleProduct(version int) *domain.Product {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Product{
		ID:            uuid.MustParse("5b0b3c5e-8a5e-4c1e-9f5e-2f6f6d1a7e01"),
		Name:          "Espresso",
		Description:   "Single shot",
		Price:         decimal.RequireFromString("3.5"),
		StockQuantity: 100,
		Version:       version,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestProductRoutes_ScopeEnforcement(t *testing.T) {
	t.Parallel()

	id := uuid.New().String()
	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"anonymous list", http.MethodGet, "/products", "", "", http.StatusForbidden, shared.CodeForbidden},
		{"write-only list", http.MethodGet, "/products", writeToken, "", http.StatusForbidden, shared.CodeForbidden},
		{"anonymous get", http.MethodGet, "/products/" + id, "", "", http.StatusForbidden, shared.CodeForbidden},
		{
			"read-only create with invalid payload",
			http.MethodPost, "/products", readToken, `{"name":"","colour":"red"}`,
			http.StatusForbidden, shared.CodeForbidden,
		},
		{
			"anonymous update",
			http.MethodPut, "/products/" + id, "", `{"name":"Tea","expected_version":0}`,
			http.StatusForbidden, shared.CodeForbidden,
		},
		{
			"read-only delete",
			http.MethodDelete, "/products/" + id + "?expected_version=0", readToken, "",
			http.StatusForbidden, shared.CodeForbidden,
		},
		{
			"read-only stock",
			http.MethodPost, "/products/" + id + "/stock", readToken, `{"delta":1}`,
			http.StatusForbidden, shared.CodeForbidden,
		},
		{"invalid token", http.MethodGet, "/products", "garbage", "", http.StatusUnauthorized, shared.CodeUnauthorized},
		{"expired token", http.MethodGet, "/products", "expired-1", "", http.StatusUnauthorized, shared.CodeUnauthorized},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{}
			rr := doRequest(t, newTestRouter(svc), tc.method, tc.path, tc.token, tc.body, nil)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedCode, decodeError(t, rr).Error.Code)
			assert.Zero(t, svc.calls.Load(), "service must not be invoked")
		})
	}
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var got domain.NewProductInput
		svc := &mockProductService{
			createFn: func(_ context.Context, input domain.NewProductInput) (*domain.Product, error) {
				got = input
				return sampleProduct(0), nil
			},
		}

		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/products", writeToken,
			`{"name":"Espresso","description":"Single shot","price":"3.50","stock_quantity":100}`, nil)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "Espresso", got.Name)
		assert.True(t, decimal.RequireFromString("3.50").Equal(got.Price))
		assert.Equal(t, 100, got.StockQuantity)

		var resp ProductResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "3.50", resp.Price)
		assert.Equal(t, 0, resp.Version)
		assert.Equal(t, `"0"`, rr.Header().Get("ETag"))
		assert.Equal(t, "/products/"+resp.ID, rr.Header().Get("Location"))
	})

	t.Run("numeric price accepted", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{
			createFn: func(_ context.Context, input domain.NewProductInput) (*domain.Product, error) {
				assert.True(t, decimal.RequireFromString("3.5").Equal(input.Price))
				return sampleProduct(0), nil
			},
		}
		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/products", writeToken,
			`{"name":"Espresso","price":3.5,"stock_quantity":1}`, nil)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	rejected := []struct {
		name string
		body string
	}{
		{"missing price", `{"name":"Espresso","stock_quantity":1}`},
		{"missing stock", `{"name":"Espresso","price":"1.00"}`},
		{"negative stock", `{"name":"Espresso","price":"1.00","stock_quantity":-1}`},
		{"unknown field", `{"name":"Espresso","price":"1.00","stock_quantity":1,"sku":"X"}`},
		{"malformed json", `{"name":`},
		{"two documents", `{"name":"a","price":"1","stock_quantity":1}{}`},
		{"wrong type", `{"name":"Espresso","price":"1.00","stock_quantity":"many"}`},
	}
	for _, tc := range rejected {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{}
			rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/products", writeToken, tc.body, nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, shared.CodeValidation, decodeError(t, rr).Error.Code)
			assert.Zero(t, svc.calls.Load())
		})
	}

	t.Run("domain validation from service", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{
			createFn: func(context.Context, domain.NewProductInput) (*domain.Product, error) {
				return nil, domain.NewValidationError("price", "must not be negative", nil)
			},
		}
		rr := doRequest(t, newTestRouter(svc), http.MethodPost, "/products", writeToken,
			`{"name":"Espresso","price":"-1","stock_quantity":1}`, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, shared.CodeValidation, resp.Error.Code)
		assert.Equal(t, "Invalid price: must not be negative", resp.Error.Message)
	})
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	product := sampleProduct(3)
	tests := []struct {
		name           string
		path           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"found", "/products/" + product.ID.String(), nil, http.StatusOK, ""},
		{"malformed id", "/products/not-a-uuid", nil, http.StatusBadRequest, shared.CodeValidation},
		{
			"not found", "/products/" + product.ID.String(),
			store.ErrProductNotFound, http.StatusNotFound, shared.CodeNotFound,
		},
		{
			"store unavailable", "/products/" + product.ID.String(),
			store.NewStoreError("product", "get", "query failed", store.ErrStoreUnavailable),
			http.StatusServiceUnavailable, shared.CodeStoreUnavailable,
		},
		{
			"unexpected", "/products/" + product.ID.String(),
			service.NewProductServiceError("get", "failed", errors.New("SELECT id FROM products WHERE x")),
			http.StatusInternalServerError, shared.CodeInternal,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{
				getFn: func(_ context.Context, id uuid.UUID) (*domain.Product, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return product, nil
				},
			}
			rr := doRequest(t, newTestRouter(svc), http.MethodGet, tc.path, readToken, "", nil)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedCode == "" {
				var resp ProductResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, product.ID.String(), resp.ID)
				assert.Equal(t, `"3"`, rr.Header().Get("ETag"))
				return
			}
			resp := decodeError(t, rr)
			assert.Equal(t, tc.expectedCode, resp.Error.Code)
			assert.NotContains(t, rr.Body.String(), "SELECT")
		})
	}
}

func TestListProducts(t *testing.T) {
	t.Parallel()

	t.Run("passes filter and pagination", func(t *testing.T) {
		t.Parallel()

		var gotFilter store.ProductFilter
		var gotPage store.Pagination
		svc := &mockProductService{
			listFn: func(_ context.Context, f store.ProductFilter, p store.Pagination) ([]*domain.Product, error) {
				gotFilter, gotPage = f, p
				return []*domain.Product{sampleProduct(0)}, nil
			},
		}

		rr := doRequest(t, newTestRouter(svc), http.MethodGet,
			"/products?q=esp&min_price=1.00&max_price=5&offset=10&limit=5", readToken, "", nil)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "esp", gotFilter.NameContains)
		require.NotNil(t, gotFilter.MinPrice)
		require.NotNil(t, gotFilter.MaxPrice)
		assert.True(t, decimal.NewFromInt(1).Equal(*gotFilter.MinPrice))
		assert.True(t, decimal.NewFromInt(5).Equal(*gotFilter.MaxPrice))
		assert.Equal(t, store.Pagination{Offset: 10, Limit: 5}, gotPage)

		var resp ProductListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp.Products, 1)
		assert.Equal(t, 10, resp.Offset)
		assert.Equal(t, 5, resp.Limit)
	})

	t.Run("empty result renders empty array with default limit", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{
			listFn: func(context.Context, store.ProductFilter, store.Pagination) ([]*domain.Product, error) {
				return nil, nil
			},
		}
		rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/products", readToken, "", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"products":[],"offset":0,"limit":20}`, rr.Body.String())
	})

	for _, query := range []string{"min_price=cheap", "limit=-1", "offset=x"} {
		query := query
		t.Run("rejects "+query, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{}
			rr := doRequest(t, newTestRouter(svc), http.MethodGet, "/products?"+query, readToken, "", nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Zero(t, svc.calls.Load())
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()

	product := sampleProduct(1)
	path := "/products/" + product.ID.String()

	tests := []struct {
		name            string
		body            string
		headers         map[string]string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedVersion int
	}{
		{
			name:            "version in body",
			body:            `{"price":"4.00","expected_version":0}`,
			expectedStatus:  http.StatusOK,
			expectedVersion: 0,
		},
		{
			name:            "version from If-Match",
			body:            `{"price":"4.00"}`,
			headers:         map[string]string{"If-Match": `"7"`},
			expectedStatus:  http.StatusOK,
			expectedVersion: 7,
		},
		{
			name:            "body agrees with If-Match",
			body:            `{"name":"Ristretto","expected_version":7}`,
			headers:         map[string]string{"If-Match": `"7"`},
			expectedStatus:  http.StatusOK,
			expectedVersion: 7,
		},
		{
			name:           "body disagrees with If-Match",
			body:           `{"name":"Ristretto","expected_version":2}`,
			headers:        map[string]string{"If-Match": `"7"`},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   shared.CodeValidation,
		},
		{
			name:           "missing version",
			body:           `{"price":"4.00"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   shared.CodeValidation,
		},
		{
			name:           "malformed If-Match",
			body:           `{"price":"4.00"}`,
			headers:        map[string]string{"If-Match": "*"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   shared.CodeValidation,
		},
		{
			name:           "stale version",
			body:           `{"price":"4.00","expected_version":0}`,
			err:            store.ErrVersionConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   shared.CodeVersionConflict,
		},
		{
			name:           "not found",
			body:           `{"price":"4.00","expected_version":0}`,
			err:            store.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   shared.CodeNotFound,
		},
		{
			name:           "empty patch",
			body:           `{"expected_version":0}`,
			err:            domain.NewValidationError("", "update contains no fields", service.ErrEmptyUpdate),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   shared.CodeValidation,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{
				updateFn: func(
					_ context.Context,
					id uuid.UUID,
					_ domain.ProductPatch,
					version int,
				) (*domain.Product, error) {
					assert.Equal(t, product.ID, id)
					assert.Equal(t, tc.expectedVersion, version)
					if tc.err != nil {
						return nil, tc.err
					}
					return product, nil
				},
			}
			rr := doRequest(t, newTestRouter(svc), http.MethodPut, path, writeToken, tc.body, tc.headers)

			assert.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			if tc.expectedCode != "" {
				assert.Equal(t, tc.expectedCode, decodeError(t, rr).Error.Code)
			}
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name           string
		path           string
		headers        map[string]string
		err            error
		expectedStatus int
	}{
		{"query version", "/products/" + id.String() + "?expected_version=3", nil, nil, http.StatusNoContent},
		{"If-Match version", "/products/" + id.String(), map[string]string{"If-Match": `"3"`}, nil, http.StatusNoContent},
		{"missing version", "/products/" + id.String(), nil, nil, http.StatusBadRequest},
		{
			"query with malformed If-Match", "/products/" + id.String() + "?expected_version=3",
			map[string]string{"If-Match": "*"}, nil, http.StatusBadRequest,
		},
		{
			"query disagrees with If-Match", "/products/" + id.String() + "?expected_version=3",
			map[string]string{"If-Match": `"4"`}, nil, http.StatusBadRequest,
		},
		{
			"stale version", "/products/" + id.String() + "?expected_version=3", nil,
			store.ErrVersionConflict, http.StatusConflict,
		},
		{
			"not found", "/products/" + id.String() + "?expected_version=3", nil,
			store.ErrProductNotFound, http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProductService{
				deleteFn: func(_ context.Context, gotID uuid.UUID, version int) error {
					assert.Equal(t, id, gotID)
					assert.Equal(t, 3, version)
					return tc.err
				},
			}
			rr := doRequest(t, newTestRouter(svc), http.MethodDelete, tc.path, writeToken, "", tc.headers)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus == http.StatusNoContent {
				assert.Empty(t, rr.Body.String())
			}
		})
	}
}

func TestAdjustStock(t *testing.T) {
	t.Parallel()

	product := sampleProduct(2)
	path := "/products/" + product.ID.String() + "/stock"

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{
			stockFn: func(_ context.Context, _ uuid.UUID, delta, version int) (*domain.Product, error) {
				assert.Equal(t, -5, delta)
				assert.Equal(t, 1, version)
				return product, nil
			},
		}
		rr := doRequest(t, newTestRouter(svc), http.MethodPost, path, writeToken,
			`{"delta":-5,"expected_version":1}`, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{
			stockFn: func(context.Context, uuid.UUID, int, int) (*domain.Product, error) {
				return nil, service.ErrInsufficientStock
			},
		}
		rr := doRequest(t, newTestRouter(svc), http.MethodPost, path, writeToken,
			`{"delta":-500,"expected_version":1}`, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, shared.CodeInsufficient, decodeError(t, rr).Error.Code)
	})

	t.Run("missing delta", func(t *testing.T) {
		t.Parallel()

		svc := &mockProductService{}
		rr := doRequest(t, newTestRouter(svc), http.MethodPost, path, writeToken, `{"expected_version":1}`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Zero(t, svc.calls.Load())
	})
}
