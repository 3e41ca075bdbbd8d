package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/auth"
	"github.com/ekaya-inc/inspection-engine/pkg/jsonutil"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/narrative"
	"github.com/ekaya-inc/inspection-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// BulkImportRequest for POST /narratives/import
type BulkImportRequest struct {
	Templates []models.NarrativeTemplateDefinition `json:"templates"`
}

// BulkImportResponse reports how many templates were inserted.
type BulkImportResponse struct {
	Imported int `json:"imported"`
}

// ExtractVariablesRequest for POST /narratives/extract
type ExtractVariablesRequest struct {
	Title       string                     `json:"title"`
	Summary     string                     `json:"summary"`
	SectionName string                     `json:"section_name"`
	Hints       *narrative.StructuredHints `json:"hints,omitempty"`
}

// RenderRequest for POST /narratives/render
type RenderRequest struct {
	Body      string                     `json:"body"`
	Variables map[string]json.RawMessage `json:"variables"`
}

// RenderResponse carries the rendered text and whether any placeholder was left unresolved.
type RenderResponse struct {
	Text       string `json:"text"`
	Unresolved bool   `json:"unresolved"`
}

// SuggestionsResponse for GET /findings/{fid}/suggestions
type SuggestionsResponse struct {
	Suggestions []*services.NarrativeSuggestion `json:"suggestions"`
}

// ApplyNarrativeRequest for POST /findings/{fid}/narrative
type ApplyNarrativeRequest struct {
	NarrativeID string `json:"narrative_id"`
	// Variables are optional; numbers are accepted as well as strings.
	Variables  map[string]json.RawMessage `json:"variables,omitempty"`
	Mode       models.ApplyMode           `json:"mode,omitempty"`
	Confidence *float64                   `json:"confidence,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// NarrativeHandler handles narrative template and suggestion HTTP requests.
type NarrativeHandler struct {
	narrativeService services.NarrativeService
	logger           *zap.Logger
}

// NewNarrativeHandler creates a new narrative handler.
func NewNarrativeHandler(narrativeService services.NarrativeService, logger *zap.Logger) *NarrativeHandler {
	return &NarrativeHandler{
		narrativeService: narrativeService,
		logger:           logger,
	}
}

// RegisterRoutes registers the narrative handler's routes on the given mux.
func (h *NarrativeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/tenants/{tid}/narratives"
	findings := "/api/tenants/{tid}/findings/{fid}"
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuthWithPathValidation("tid")(tenantMiddleware(next))
	}

	mux.HandleFunc("GET "+base, guard(h.List))
	mux.HandleFunc("POST "+base, guard(h.Create))
	mux.HandleFunc("POST "+base+"/import", guard(h.BulkImport))
	mux.HandleFunc("POST "+base+"/extract", guard(h.ExtractVariables))
	mux.HandleFunc("POST "+base+"/render", guard(h.Render))
	mux.HandleFunc("GET "+base+"/{nid}", guard(h.Get))
	mux.HandleFunc("PATCH "+base+"/{nid}", guard(h.Update))
	mux.HandleFunc("DELETE "+base+"/{nid}", guard(h.Deactivate))
	mux.HandleFunc("GET "+findings+"/suggestions", guard(h.Suggest))
	mux.HandleFunc("POST "+findings+"/narrative", guard(h.Apply))
	mux.HandleFunc("POST "+findings+"/narrative/auto", guard(h.AutoApply))
}

// List handles GET /api/tenants/{tid}/narratives
func (h *NarrativeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	list, err := h.narrativeService.ListTemplates(r.Context(), tenantID, filter)
	if err != nil {
		writeServiceError(w, err, "", h.logger, "Failed to list narrative templates",
			zap.String("tenant_id", tenantID.String()))
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// parseFilter reads list query parameters. tags may be repeated or comma separated.
func (h *NarrativeHandler) parseFilter(w http.ResponseWriter, r *http.Request) (models.NarrativeTemplateFilter, bool) {
	q := r.URL.Query()
	filter := models.NarrativeTemplateFilter{
		Search:    q.Get("search"),
		Category:  models.NarrativeCategory(strings.ToUpper(q.Get("category"))),
		Component: q.Get("component"),
		Severity:  models.FindingSeverity(strings.ToUpper(q.Get("severity"))),
	}

	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeValidation(w, h.logger, "is_active", "must be true or false")
			return filter, false
		}
		filter.IsActive = &active
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidation(w, h.logger, p.name, "must be an integer")
			return filter, false
		}
		*p.dst = n
	}

	return filter, true
}

// Create handles POST /api/tenants/{tid}/narratives
func (h *NarrativeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	var def models.NarrativeTemplateDefinition
	if !decodeJSON(w, r, &def, h.logger) {
		return
	}

	tpl, err := h.narrativeService.CreateTemplate(r.Context(), tenantID, def)
	if err != nil {
		writeServiceError(w, err, "", h.logger, "Failed to create narrative template",
			zap.String("tenant_id", tenantID.String()))
		return
	}

	h.writeData(w, http.StatusCreated, tpl)
}

// BulkImport handles POST /api/tenants/{tid}/narratives/import
func (h *NarrativeHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := ParseTenantID(w, r, h.logger)
	if !ok {
		return
	}

	var req BulkImportRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	n, err := h.narrativeService.BulkImport(r.Context(), tenantID, req.Templates)
	if err != nil {
		writeServiceError(w, err, "", h.logger, "Failed to import narrative templates",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", len(req.Templates)))
		return
	}

	h.writeData(w, http.StatusCreated, BulkImportResponse{Imported: n})
}

// Get handles GET /api/tenants/{tid}/narratives/{nid}
func (h *NarrativeHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, narrativeID, ok := ParseTenantAndNarrativeIDs(w, r, h.logger)
	if !ok {
		return
	}

	tpl, err := h.narrativeService.GetTemplate(r.Context(), tenantID, narrativeID)
	if err != nil {
		writeServiceError(w, err, "Narrative template not found", h.logger, "Failed to get narrative template",
			zap.String("narrative_id", narrativeID.String()))
		return
	}

	h.writeData(w, http.StatusOK, tpl)
}

// Update handles PATCH /api/tenants/{tid}/narratives/{nid}
func (h *NarrativeHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, narrativeID, ok := ParseTenantAndNarrativeIDs(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.NarrativeTemplatePatch
	if !decodeJSON(w, r, &patch, h.logger) {
		return
	}

	tpl, err := h.narrativeService.UpdateTemplate(r.Context(), tenantID, narrativeID, patch)
	if err != nil {
		writeServiceError(w, err, "Narrative template not found", h.logger, "Failed to update narrative template",
			zap.String("narrative_id", narrativeID.String()))
		return
	}

	h.writeData(w, http.StatusOK, tpl)
}

// Deactivate handles DELETE /api/tenants/{tid}/narratives/{nid}
func (h *NarrativeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, narrativeID, ok := ParseTenantAndNarrativeIDs(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.narrativeService.DeactivateTemplate(r.Context(), tenantID, narrativeID); err != nil {
		writeServiceError(w, err, "Narrative template not found", h.logger, "Failed to deactivate narrative template",
			zap.String("narrative_id", narrativeID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Narrative template deactivated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ExtractVariables handles POST /api/tenants/{tid}/narratives/extract
func (h *NarrativeHandler) ExtractVariables(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseTenantID(w, r, h.logger); !ok {
		return
	}

	var req ExtractVariablesRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	vars := h.narrativeService.ExtractVariables(req.Title, req.Summary, req.SectionName, req.Hints)
	h.writeData(w, http.StatusOK, vars)
}

// Render handles POST /api/tenants/{tid}/narratives/render
func (h *NarrativeHandler) Render(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseTenantID(w, r, h.logger); !ok {
		return
	}

	var req RenderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	text := h.narrativeService.Render(req.Body, jsonutil.FlexibleStringMap(req.Variables))
	h.writeData(w, http.StatusOK, RenderResponse{Text: text, Unresolved: narrative.HasUnresolved(text)})
}

// Suggest handles GET /api/tenants/{tid}/findings/{fid}/suggestions
func (h *NarrativeHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	tenantID, findingID, ok := ParseTenantAndFindingIDs(w, r, h.logger)
	if !ok {
		return
	}

	suggestions, err := h.narrativeService.Suggest(r.Context(), tenantID, findingID)
	if err != nil {
		writeServiceError(w, err, "Finding not found", h.logger, "Failed to suggest narratives",
			zap.String("finding_id", findingID.String()))
		return
	}

	h.writeData(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

// Apply handles POST /api/tenants/{tid}/findings/{fid}/narrative
func (h *NarrativeHandler) Apply(w http.ResponseWriter, r *http.Request) {
	tenantID, findingID, ok := ParseTenantAndFindingIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req ApplyNarrativeRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	narrativeID, err := uuid.Parse(req.NarrativeID)
	if err != nil {
		writeValidation(w, h.logger, "narrative_id", "must be a valid UUID")
		return
	}

	finding, err := h.narrativeService.Apply(r.Context(), tenantID, findingID, services.ApplyRequest{
		NarrativeID: narrativeID,
		Variables:   jsonutil.FlexibleStringMap(req.Variables),
		Mode:        req.Mode,
		UserID:      auth.GetUserIDFromContext(r.Context()),
		Confidence:  req.Confidence,
	})
	if err != nil {
		writeServiceError(w, err, "Finding or narrative template not found", h.logger, "Failed to apply narrative",
			zap.String("finding_id", findingID.String()),
			zap.String("narrative_id", narrativeID.String()))
		return
	}

	h.writeData(w, http.StatusOK, finding)
}

// AutoApply handles POST /api/tenants/{tid}/findings/{fid}/narrative/auto
func (h *NarrativeHandler) AutoApply(w http.ResponseWriter, r *http.Request) {
	tenantID, findingID, ok := ParseTenantAndFindingIDs(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.narrativeService.AutoApply(r.Context(), tenantID, findingID)
	if err != nil {
		writeServiceError(w, err, "Finding not found", h.logger, "Failed to auto-apply narrative",
			zap.String("finding_id", findingID.String()))
		return
	}

	h.writeData(w, http.StatusOK, result)
}

func (h *NarrativeHandler) writeData(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
