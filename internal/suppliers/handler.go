package suppliers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/batiprix/batiprix/internal/fiscal"
	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// Handler wires the supplier HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the supplier routes, mounted under /api/fournisseurs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/desactiver", h.deactivate)
	r.Post("/{id}/reactiver", h.reactivate)
}

type createSupplierRequest struct {
	Name       string  `json:"nom" validate:"required"`
	Contact    *string `json:"contact"`
	Phone      *string `json:"telephone"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Address    *string `json:"adresse"`
	RegimeHint string  `json:"statut_tva"`
}

type updateSupplierRequest struct {
	Name       *string `json:"nom"`
	Contact    *string `json:"contact"`
	Phone      *string `json:"telephone"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Address    *string `json:"adresse"`
	RegimeHint *string `json:"statut_tva"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []SupplierWithStats{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fournisseurs": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	supplier, err := h.service.Create(r.Context(), CreateInput{
		Name:       req.Name,
		Contact:    req.Contact,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		RegimeHint: fiscal.Regime(req.RegimeHint),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	input := UpdateInput{
		Name:    req.Name,
		Contact: req.Contact,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	if req.RegimeHint != nil {
		hint := fiscal.Regime(*req.RegimeHint)
		input.RegimeHint = &hint
	}
	supplier, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	supplier, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fournisseur": supplier})
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	supplier, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fournisseur": supplier})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fiscal.ErrInvalidRegime):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeInvalidRegime, "Invalid Regime", "statut_tva must be one of tva_18, sans_tva, brs_5")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, httpx.CodeDuplicate, "Duplicate", "a supplier with this name already exists")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.CodeNotFound, "Not Found", "supplier not found")
	default:
		h.logger.Error("supplier request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
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
