package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
)

// TenantMiddleware is a function that wraps a handler with tenant context.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ApiResponse wraps data in the format expected by clients.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidationErrorBody is the 400 payload for rejected input.
type ValidationErrorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Fields  []apperrors.FieldError `json:"fields"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error to a response:
// ErrNotFound -> 404, *ValidationError -> 400 with fields, anything else -> 500.
// Internal error text is logged, never returned.
func writeServiceError(w http.ResponseWriter, err error, notFoundMessage string, logger *zap.Logger, logMsg string, fields ...zap.Field) {
	var ve *apperrors.ValidationError
	var writeErr error

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found", notFoundMessage)
	case errors.As(err, &ve):
		writeErr = WriteJSON(w, http.StatusBadRequest, ValidationErrorBody{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Fields:  ve.Fields,
		})
	default:
		logger.Error(logMsg, append(fields, zap.Error(err))...)
		writeErr = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}

	if writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// writeValidation writes a single-field 400.
func writeValidation(w http.ResponseWriter, logger *zap.Logger, field, problem string) {
	writeServiceError(w, apperrors.NewValidationError(field, problem), "", logger, "")
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
