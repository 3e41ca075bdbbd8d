package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/auth"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/services"
)

// NarrativeSettingsHandler handles per-tenant narrative settings.
type NarrativeSettingsHandler struct {
	settingsService services.NarrativeSettingsService
	logger          *zap.Logger
}

// NewNarrativeSettingsHandler creates a new settings handler.
func NewNarrativeSettingsHandler(settingsService services.NarrativeSettingsService, logger *zap.Logger) *NarrativeSettingsHandler {
	return &NarrativeSettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *NarrativeSettingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	path := "/api/tenants/{tid}/narrative-settings"

	mux.HandleFunc("GET "+path,
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.Get)))
	mux.HandleFunc("PATCH "+path,
		authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(h.Update)))
}

// Get handles GET /api/tenants/{tid}/narrative-settings
func (h *NarrativeSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSettings(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err, "", h.logger, "Failed to get narrative settings",
			zap.String("tenant_id", tenantID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: settings}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/tenants/{tid}/narrative-settings
func (h *NarrativeSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.NarrativeSettingPatch
	if !decodeJSON(w, r, &patch, h.logger) {
		return
	}

	settings, err := h.settingsService.UpdateSettings(r.Context(), tenantID, patch)
	if err != nil {
		writeServiceError(w, err, "", h.logger, "Failed to update narrative settings",
			zap.String("tenant_id", tenantID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: settings}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
