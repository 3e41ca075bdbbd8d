package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseTenantID extracts and validates the tenant ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: tid
func ParseTenantID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_tenant_id", "Invalid tenant ID format", logger)
}

// ParseNarrativeID extracts and validates the narrative template ID from the request path.
// Expects path parameter: nid
func ParseNarrativeID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "nid", "invalid_narrative_id", "Invalid narrative ID format", logger)
}

// ParseFindingID extracts and validates the finding ID from the request path.
// Expects path parameter: fid
func ParseFindingID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "fid", "invalid_finding_id", "Invalid finding ID format", logger)
}

// ParseTenantAndNarrativeIDs extracts and validates both tenant and narrative IDs.
// Expects path parameters: tid, nid
func ParseTenantAndNarrativeIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := ParseTenantID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	narrativeID, ok := ParseNarrativeID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, narrativeID, true
}

// ParseTenantAndFindingIDs extracts and validates both tenant and finding IDs.
// Expects path parameters: tid, fid
func ParseTenantAndFindingIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := ParseTenantID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	findingID, ok := ParseFindingID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, findingID, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
