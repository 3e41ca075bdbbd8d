// Package auth provides JWT-based authentication for inspection-engine.
// It validates tokens issued by the identity provider using JWKS endpoints.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// Claims represents the JWT claims structure.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the tenant (inspection company) the caller acts for.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tid,omitempty"`   // Tenant UUID
	Email    string   `json:"email,omitempty"` // User email address
	Roles    []string `json:"roles,omitempty"` // User roles within the tenant
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// WithClaims returns a context carrying claims. Used by the middleware and by tests.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
