package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/store"
	"github.com/shopspring/decimal"
)

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.Nil, error): a ValidationError if the parameter is missing or malformed
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// expectedVersion resolves the caller's expected version from an explicit
// value (body field, else the expected_version query parameter) and the
// If-Match header, which may be quoted like an ETag. When both are supplied
// they must agree.
func expectedVersion(r *http.Request, explicit *int) (int, error) {
	var fromBody *int
	if explicit != nil {
		if *explicit < 0 {
			return 0, domain.NewValidationError("expected_version", "must be a non-negative integer", nil)
		}
		fromBody = explicit
	}

	fromQuery, err := parseVersion(r.URL.Query().Get("expected_version"), "expected_version")
	if err != nil {
		return 0, err
	}
	fromHeader, err := parseVersion(
		strings.Trim(strings.TrimPrefix(strings.TrimSpace(r.Header.Get("If-Match")), "W/"), `"`),
		"If-Match",
	)
	if err != nil {
		return 0, err
	}

	explicitVersion := fromBody
	if explicitVersion == nil {
		explicitVersion = fromQuery
	}

	switch {
	case explicitVersion != nil && fromHeader != nil && *explicitVersion != *fromHeader:
		return 0, domain.NewValidationError("expected_version", "does not match If-Match", nil)
	case explicitVersion != nil:
		return *explicitVersion, nil
	case fromHeader != nil:
		return *fromHeader, nil
	default:
		return 0, domain.NewValidationError("expected_version", "is required", nil)
	}
}

// parseVersion returns nil for an absent value.
func parseVersion(raw, field string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 0 {
		return nil, domain.NewValidationError(field, "must be a non-negative integer", nil)
	}
	return &version, nil
}

// etag renders a product version as a strong entity tag.
func etag(version int) string {
	return fmt.Sprintf("%q", strconv.Itoa(version))
}

// parseListQuery reads the filter and pagination query parameters of
// GET /products.
func parseListQuery(r *http.Request) (store.ProductFilter, store.Pagination, error) {
	q := r.URL.Query()

	filter := store.ProductFilter{NameContains: strings.TrimSpace(q.Get("q"))}
	if filter.NameContains == "" {
		filter.NameContains = strings.TrimSpace(q.Get("name"))
	}

	var err error
	if filter.MinPrice, err = parsePriceParam(q.Get("min_price"), "min_price"); err != nil {
		return filter, store.Pagination{}, err
	}
	if filter.MaxPrice, err = parsePriceParam(q.Get("max_price"), "max_price"); err != nil {
		return filter, store.Pagination{}, err
	}

	page := store.Pagination{}
	if page.Offset, err = parseIntParam(q.Get("offset"), "offset"); err != nil {
		return filter, page, err
	}
	if page.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return filter, page, err
	}
	return filter, page, nil
}

func parsePriceParam(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a decimal number", nil)
	}
	return &d, nil
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", nil)
	}
	return n, nil
}
