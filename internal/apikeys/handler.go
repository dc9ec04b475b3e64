package apikeys

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// Handler wires the API key admin endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the key routes, mounted under /api/admin/api-keys.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.issue)
	r.Delete("/{id}", h.revoke)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if keys == nil {
		keys = []Key{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"api_keys": keys})
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string     `json:"nom"`
		Scopes    []string   `json:"scopes"`
		ExpiresAt *time.Time `json:"date_expiration"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	issued, err := h.service.Issue(r.Context(), req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, issued)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.CodeNotFound, "Not Found", "api key not found")
	default:
		h.logger.Error("api key request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
	}
}
