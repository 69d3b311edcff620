package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
)

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

// mapError translates a service error to an HTTP status and stable error code.
// The caller keeps the error message; a rejected statement (422) must read
// differently from an unreachable backend (502) or a rewrite the parser
// refused (400).
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrUnparseableIdentifier):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrUnknownDialect):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		return http.StatusBadGateway, "backend_unavailable"
	case apperrors.IsExecutionError(err):
		return http.StatusUnprocessableEntity, "execution_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError maps err through the error taxonomy and writes the error
// envelope. Internal errors get a generic message; everything else passes the
// service's message through verbatim.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := mapError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		message = "internal error"
	}

	if werr := ErrorResponse(w, status, code, message); werr != nil {
		logger.Error("Failed to write error response", zap.Error(werr))
	}
}
