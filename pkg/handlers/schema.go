package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// SchemaHandler handles schema discovery HTTP requests.
type SchemaHandler struct {
	schemas services.SchemaService
	logger  *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schemas services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schemas: schemas, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /projects/{pid}/schema/discover", h.Discover)
	mux.HandleFunc("GET /projects/{pid}/schema", h.Get)
}

// Discover handles POST /projects/{pid}/schema/discover
// Returns the project's schema, discovering it if missing. With
// forceRefresh=true the cache is bypassed and the backend catalog is
// re-queried.
func (h *SchemaHandler) Discover(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	var snapshot *models.SchemaSnapshot
	var err error
	if r.URL.Query().Get("forceRefresh") == "true" {
		snapshot, err = h.schemas.Refresh(r.Context(), projectID)
	} else {
		snapshot, err = h.schemas.Get(r.Context(), projectID)
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]*models.SchemaSnapshot{"schema": snapshot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /projects/{pid}/schema
// Returns the cached snapshot without touching the backend; schema is null
// when the project has never been discovered.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.schemas.Cached(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]*models.SchemaSnapshot{"schema": snapshot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SchemaHandler) parseProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid project ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return projectID, true
}
