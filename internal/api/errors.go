package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/service"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
	"github.com/phrazzld/product-catalog-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// and stable error codes based on the error type. This prevents leaking
// internal error types or messages to clients.
func MapErrorToStatusCode(err error) (int, string) {
	var validationErrs validator.ValidationErrors
	switch {
	// Validation errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrInvalidBody),
		errors.Is(err, service.ErrEmptyUpdate),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest, shared.CodeValidation

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized, shared.CodeUnauthorized

	// Authorization errors
	case errors.Is(err, auth.ErrInsufficientScope),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusForbidden, shared.CodeForbidden

	case store.IsNotFoundError(err):
		return http.StatusNotFound, shared.CodeNotFound

	// Conflict errors
	case store.IsConflictError(err):
		return http.StatusConflict, shared.CodeVersionConflict
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, shared.CodeInsufficient
	case store.IsDuplicateError(err):
		return http.StatusConflict, shared.CodeDuplicate

	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, shared.CodeStoreUnavailable

	default:
		return http.StatusInternalServerError, shared.CodeInternal
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return "Validation error"
		}
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, shared.ErrInvalidBody):
		return "Invalid request body"
	case errors.Is(err, service.ErrEmptyUpdate):
		return "Update must change at least one field"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid product data"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authentication required"
	case errors.Is(err, auth.ErrInsufficientScope):
		return "Insufficient scope"

	case errors.Is(err, store.ErrNotFound):
		return "Product not found"
	case errors.Is(err, store.ErrVersionConflict):
		return "Product was modified concurrently; reload and retry"
	case errors.Is(err, service.ErrInsufficientStock):
		return "Insufficient stock"
	case errors.Is(err, store.ErrDuplicate):
		return "Product already exists"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "Service temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status, code and safe message and writes the
// error response. Internal detail is logged only. fallbackMsg replaces the
// generic message for unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status, code := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		message = fallbackMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, code, message, err)
}

// SanitizeValidationError turns validator errors into a short message that
// names the JSON field and the violated rule.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", jsonFieldName(fe), getValidationTagMessage(fe.Tag())))
	}
	return "Invalid " + strings.Join(parts, "; ")
}

// jsonFieldName converts a struct field such as StockQuantity to the JSON
// name stock_quantity used by the request DTOs.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
