package api

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
	"github.com/phrazzld/product-catalog-api/internal/store"
)

// mockProductService is a mock implementation of the ProductService interface.
// calls counts every invocation so tests can assert the service was never reached.
type mockProductService struct {
	calls atomic.Int32

	createFn func(ctx context.Context, input domain.NewProductInput) (*domain.Product, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	listFn   func(ctx context.Context, filter store.ProductFilter, page store.Pagination) ([]*domain.Product, error)
	updateFn func(ctx context.Context, id uuid.UUID, patch domain.ProductPatch, version int) (*domain.Product, error)
	deleteFn func(ctx context.Context, id uuid.UUID, version int) error
	stockFn  func(ctx context.Context, id uuid.UUID, delta, version int) (*domain.Product, error)
}

var errNotMocked = errors.New("not mocked")

func (m *mockProductService) CreateProduct(
	ctx context.Context,
	input domain.NewProductInput,
) (*domain.Product, error) {
	m.calls.Add(1)
	if m.createFn == nil {
		return nil, errNotMocked
	}
	return m.createFn(ctx, input)
}

func (m *mockProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.calls.Add(1)
	if m.getFn == nil {
		return nil, errNotMocked
	}
	return m.getFn(ctx, id)
}

func (m *mockProductService) ListProducts(
	ctx context.Context,
	filter store.ProductFilter,
	page store.Pagination,
) ([]*domain.Product, error) {
	m.calls.Add(1)
	if m.listFn == nil {
		return nil, errNotMocked
	}
	return m.listFn(ctx, filter, page)
}

func (m *mockProductService) UpdateProduct(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	m.calls.Add(1)
	if m.updateFn == nil {
		return nil, errNotMocked
	}
	return m.updateFn(ctx, id, patch, expectedVersion)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	m.calls.Add(1)
	if m.deleteFn == nil {
		return errNotMocked
	}
	return m.deleteFn(ctx, id, expectedVersion)
}

func (m *mockProductService) AdjustStock(
	ctx context.Context,
	id uuid.UUID,
	delta int,
	expectedVersion int,
) (*domain.Product, error) {
	m.calls.Add(1)
	if m.stockFn == nil {
		return nil, errNotMocked
	}
	return m.stockFn(ctx, id, delta, expectedVersion)
}

// Test bearer tokens understood by scopedJWTService.
const (
	readToken  = "read-token"
	writeToken = "write-token"
	allToken   = "all-token"
)

// scopedJWTService grants scopes based on which test token is presented.
func scopedJWTService() *auth.MockJWTService {
	svc := auth.NewMockJWTService()
	svc.ValidateTokenFunc = func(_ context.Context, token string) (*auth.Claims, error) {
		var scopes []string
		switch token {
		case readToken:
			scopes = []string{auth.ScopeProductRead}
		case writeToken:
			scopes = []string{auth.ScopeProductWrite}
		case allToken:
			scopes = []string{auth.ScopeProductRead, auth.ScopeProductWrite}
		default:
			if strings.HasPrefix(token, "expired") {
				return nil, auth.ErrExpiredToken
			}
			return nil, auth.ErrInvalidToken
		}
		return &auth.Claims{Subject: "test-client", Scopes: scopes}, nil
	}
	return svc
}
