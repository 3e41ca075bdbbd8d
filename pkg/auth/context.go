package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns empty string if not authenticated or claims are missing.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// GetTenantIDFromContext extracts the tenant ID from JWT claims in the context.
// Returns uuid.Nil if not authenticated, missing or malformed.
func GetTenantIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.TenantID == "" {
		return uuid.Nil
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil
	}
	return tenantID
}

// RequireTenantIDFromContext extracts the tenant ID from context and returns an error if not found.
func RequireTenantIDFromContext(ctx context.Context) (uuid.UUID, error) {
	tenantID := GetTenantIDFromContext(ctx)
	if tenantID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("tenant ID not found in context")
	}
	return tenantID, nil
}
