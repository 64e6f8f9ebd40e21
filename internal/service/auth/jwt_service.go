// Package auth validates and issues the bearer tokens that carry scope claims.
package auth

import (
	"context"
	"slices"
	"time"
)

// Scopes checked by the product routes.
const (
	ScopeProductRead  = "product:read"
	ScopeProductWrite = "product:write"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for subject carrying scopes.
	// A non-positive lifetime selects the service default.
	GenerateToken(ctx context.Context, subject string, scopes []string, lifetime time.Duration) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated content of a token.
type Claims struct {
	Subject string
	// Scopes merges the space-separated "scope" claim and the "scopes" array claim.
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Scopes, scope)
}
