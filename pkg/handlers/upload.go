package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// uploadMemoryLimit bounds how much of a multipart body is held in memory;
// larger files spill to disk.
const uploadMemoryLimit = 32 << 20

// UploadHandler handles CSV file ingestion.
type UploadHandler struct {
	ingest services.IngestService
	logger *zap.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(ingest services.IngestService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{ingest: ingest, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload-csv", h.UploadCSV)
}

// UploadCSV handles POST /upload-csv
// Multipart form: "file" (the CSV), "projectId", optional "tableName".
func (h *UploadHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid multipart form"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	projectID, err := uuid.Parse(r.FormValue("projectId"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid project ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Missing file field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			h.logger.Warn("Failed to close uploaded file", zap.Error(err))
		}
	}()

	result, err := h.ingest.UploadCSV(r.Context(), projectID, r.FormValue("tableName"), file)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
