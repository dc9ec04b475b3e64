package units

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// Handler wires the unit HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the unit routes, mounted under /api/referentiel.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/unites", h.list)
	r.Post("/unites", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("unit list failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
		return
	}
	if list == nil {
		list = []Unit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unites": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string  `json:"code"`
		Label string  `json:"libelle"`
		Type  *string `json:"type"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	unit, err := h.service.Create(r.Context(), req.Code, req.Label, req.Type)
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "code and libelle are required")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, httpx.CodeDuplicate, "Duplicate", "unit code already exists")
	case err != nil:
		h.logger.Error("unit create failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
	default:
		httpx.JSON(w, http.StatusCreated, unit)
	}
}
