package products

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/batiprix/batiprix/internal/dedup"
	"github.com/batiprix/batiprix/internal/platform/httpx"
	"github.com/batiprix/batiprix/internal/pricing"
)

// PriceLister provides the active supplier prices joined into the product
// detail view.
type PriceLister interface {
	ListForProduct(ctx context.Context, productID int64) ([]pricing.PriceWithSupplier, error)
}

// Handler wires the catalog HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	detector  *dedup.Detector
	prices    PriceLister
	validator *validator.Validate
}

// NewHandler constructs a Handler. prices may be nil, in which case the
// detail view omits the price join.
func NewHandler(logger *slog.Logger, service *Service, detector *dedup.Detector, prices PriceLister) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		detector:  detector,
		prices:    prices,
		validator: validator.New(),
	}
}

// MountRoutes registers the catalog routes, mounted under /api/referentiel.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/produits", h.list)
	r.Get("/produits/search", h.search)
	r.Post("/produits", h.create)
	r.Get("/produits/{id}", h.get)
	r.Patch("/produits/{id}", h.update)
	r.Post("/produits/{id}/desactiver", h.deactivate)
	r.Post("/produits/{id}/reactiver", h.reactivate)
}

type createProductRequest struct {
	Name       string   `json:"nom" validate:"required"`
	Category   string   `json:"categorie" validate:"required"`
	Subsection *string  `json:"sous_section"`
	Unit       string   `json:"unite" validate:"required"`
	Stockable  bool     `json:"est_stockable"`
	Length     *float64 `json:"longueur" validate:"omitempty,gt=0"`
	Width      *float64 `json:"largeur" validate:"omitempty,gt=0"`
	Color      *string  `json:"couleur"`
	IsTemplate bool     `json:"est_template"`
}

type updateProductRequest struct {
	Name       *string  `json:"nom"`
	Subsection *string  `json:"sous_section"`
	Stockable  *bool    `json:"est_stockable"`
	Length     *float64 `json:"longueur" validate:"omitempty,gt=0"`
	Width      *float64 `json:"largeur" validate:"omitempty,gt=0"`
	Color      *string  `json:"couleur"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := Filters{
		Category:        q.Get("categorie"),
		IncludeInactive: q.Get("inclure_inactifs") == "true",
	}
	if v := q.Get("est_stockable"); v != "" {
		b := v == "true"
		filters.Stockable = &b
	}
	if v := q.Get("avec_prix"); v != "" {
		b := v == "true"
		filters.WithPrice = &b
	}

	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"produits": list})
}

// search scores a candidate name against the catalog and reports likely
// duplicates before the caller commits to a create.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.JSON(w, http.StatusOK, map[string]any{"resultats": []dedup.Match{}})
		return
	}
	matches, err := h.detector.FindSimilar(r.Context(), query, r.URL.Query().Get("categorie"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if matches == nil {
		matches = []dedup.Match{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"resultats": matches})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if h.prices == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"produit": product})
		return
	}

	prices, err := h.prices.ListForProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if prices == nil {
		prices = []pricing.PriceWithSupplier{}
	}
	var defaultPrice *pricing.PriceWithSupplier
	for i := range prices {
		if prices[i].IsDefault {
			defaultPrice = &prices[i]
			break
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"produit":     product,
		"prix":        prices,
		"prix_defaut": defaultPrice,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), CreateInput{
		Name:       req.Name,
		Category:   req.Category,
		Subsection: req.Subsection,
		Unit:       req.Unit,
		Stockable:  req.Stockable,
		Length:     req.Length,
		Width:      req.Width,
		Color:      req.Color,
		IsTemplate: req.IsTemplate,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	product, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:       req.Name,
		Subsection: req.Subsection,
		Stockable:  req.Stockable,
		Length:     req.Length,
		Width:      req.Width,
		Color:      req.Color,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
	case errors.Is(err, ErrInactiveStockable):
		httpx.Problem(w, http.StatusConflict, httpx.CodeValidation, "Conflict", "an inactive product cannot be stockable")
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, httpx.CodeDuplicate, "Duplicate", "a product with this name already exists")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.CodeNotFound, "Not Found", "product not found")
	default:
		h.logger.Error("catalog request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
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
