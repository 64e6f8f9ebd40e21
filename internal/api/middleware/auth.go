package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
)

// Headers set by a forward-auth gateway (oauth2-proxy, Traefik, NGINX) after
// it has verified the caller.
const (
	GatewayUserHeader   = "X-Auth-Request-User"
	GatewayGroupsHeader = "X-Auth-Request-Groups"
)

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService          auth.JWTService
	trustGatewayHeaders bool
}

// AuthOption configures an AuthMiddleware.
type AuthOption func(*AuthMiddleware)

// WithGatewayHeaders makes Authenticate accept the identity injected by an
// upstream gateway in place of a bearer token. Enable it only when the
// service is reachable solely through that gateway.
func WithGatewayHeaders() AuthOption {
	return func(m *AuthMiddleware) {
		m.trustGatewayHeaders = true
	}
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, opts ...AuthOption) *AuthMiddleware {
	m := &AuthMiddleware{
		jwtService: jwtService,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate validates a bearer token from the Authorization header and
// stores its claims in the request context. Requests without the header
// proceed anonymously and are turned away by RequireScope; a header that is
// present but malformed, invalid or expired is rejected with 401.
//
// With gateway headers trusted, a request carrying X-Auth-Request-User is
// authenticated from it instead; X-Auth-Request-Groups holds the
// comma-separated scopes.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.trustGatewayHeaders {
			if user := strings.TrimSpace(r.Header.Get(GatewayUserHeader)); user != "" {
				claims := &auth.Claims{
					Subject: user,
					Scopes:  splitGroups(r.Header.Get(GatewayGroupsHeader)),
				}
				next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
				"Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
					"Token expired", err)
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
					"Invalid token", err)
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, shared.CodeInternal,
					"Authentication error", err)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// withClaims stores claims and tags the request logger with the subject.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = shared.WithClaims(ctx, claims)
	if claims != nil && claims.Subject != "" {
		log := logger.FromContext(ctx).With("subject", claims.Subject)
		ctx = logger.WithLogger(ctx, log)
	}
	return ctx
}

func splitGroups(raw string) []string {
	var groups []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// RequireScope rejects requests without claims, or whose claims do not grant
// scope, with 403 before any downstream handler runs.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := shared.GetClaims(r.Context())
			if claims == nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, shared.CodeForbidden,
					"Authentication required", auth.ErrMissingToken)
				return
			}
			if !claims.HasScope(scope) {
				shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, shared.CodeForbidden,
					"Missing required scope "+scope, auth.ErrInsufficientScope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
