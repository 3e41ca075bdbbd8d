package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuthWithPathValidation validates the JWT, requires a tenant ID in it, and matches
// that tenant to the URL path. Claims are set in context for downstream handlers.
// Use for endpoints like /api/tenants/{tid}/... where the URL carries the tenant scope.
// pathParamName is the name used in r.PathValue() (e.g., "tid").
func (m *Middleware) RequireAuthWithPathValidation(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			if err := m.authService.ValidateTenantIDMatch(claims, r.PathValue(pathParamName)); err != nil {
				m.writeError(w, http.StatusForbidden, "forbidden", "Tenant ID mismatch between token and URL")
				return
			}

			next(w, r.WithContext(WithClaims(r.Context(), claims)))
		}
	}
}

func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	claims, _, err := m.authService.ValidateRequest(r)
	if err != nil {
		m.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return nil, false
	}

	if err := m.authService.RequireTenantID(claims); err != nil {
		m.writeError(w, http.StatusBadRequest, "bad_request", "Missing tenant ID in token")
		return nil, false
	}

	return claims, true
}

func (m *Middleware) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
