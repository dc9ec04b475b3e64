package categories

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// Handler wires the category HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the category routes, mounted under /api/referentiel.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.list)
	r.Post("/categories", h.create)
	r.Patch("/categories/{id}/stockable", h.setStockable)
	r.Post("/categories/{id}/reordonner", h.reorder)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []Category{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"nom"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	category, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) setStockable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Stockable *bool `json:"est_stockable"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Stockable == nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "est_stockable is required")
		return
	}
	category, err := h.service.SetStockable(r.Context(), id, *req.Stockable)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categorie": category})
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Direction string `json:"direction"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.Reorder(r.Context(), id, Direction(req.Direction)); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrName):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "nom is required")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, httpx.CodeDuplicate, "Duplicate", "category already exists")
	case errors.Is(err, ErrBoundary):
		httpx.Problem(w, http.StatusConflict, httpx.CodeValidation, "Conflict", "category is already at the boundary")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.CodeNotFound, "Not Found", "category not found")
	default:
		h.logger.Error("category request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
