package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/internal/httpserver"
)

// Handler exposes read-only HTTP access to an entity's transition history.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts GET /{entity_type}/{entity_id} for transition history lookup.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{entity_type}/{entity_id}", h.handleList)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entityType := EntityType(chi.URLParam(r, "entity_type"))
	switch entityType {
	case EntityRun, EntityJob, EntityInstance:
	default:
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "entity_type must be one of: run, job, instance")
		return
	}

	entityID, err := uuid.Parse(chi.URLParam(r, "entity_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "entity_id must be a valid UUID")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx := r.Context()

	total, err := h.store.CountByEntity(ctx, entityType, entityID)
	if err != nil {
		h.logger.Error("counting audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to count audit log")
		return
	}

	records, err := h.store.ListByEntity(ctx, entityType, entityID, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	page := httpserver.NewOffsetPage(records, params, total)
	httpserver.Respond(w, http.StatusOK, page)
}
