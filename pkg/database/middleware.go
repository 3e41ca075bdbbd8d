package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/auth"
	"github.com/ekaya-inc/inspection-engine/pkg/logging"
)

// WithTenantContext creates middleware that sets up a tenant-scoped DB connection.
// It runs AFTER auth middleware and uses the tenant ID from JWT claims.
// The connection is released after the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := auth.RequireTenantIDFromContext(r.Context())
			if err != nil {
				claims, _ := auth.GetClaims(r.Context())
				if claims == nil || claims.TenantID == "" {
					logger.Error("Missing tenant context in claims")
					writeError(w, http.StatusInternalServerError, "internal_error", "Missing tenant context")
					return
				}
				logger.Error("Invalid tenant ID format in claims",
					zap.String("tenant_id", claims.TenantID),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_tenant_id", "Invalid tenant ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), tenantID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("tenant_id", tenantID.String()),
					logging.ErrorField(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetTenantScope(r.Context(), scope)))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
