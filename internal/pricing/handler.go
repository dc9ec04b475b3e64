package pricing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/batiprix/batiprix/internal/fiscal"
	"github.com/batiprix/batiprix/internal/observability"
	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// Handler wires the price ledger HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	ledger    *Ledger
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, ledger *Ledger, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		ledger:    ledger,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers the ledger routes, mounted under /api/prix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/produits/{id}/fournisseurs", h.addPrice)
	r.Get("/produits/{id}/fournisseurs", h.listForProduct)
	r.Patch("/fournisseurs/{id}", h.updatePrice)
	r.Patch("/fournisseurs/{id}/defaut", h.setDefault)
	r.Delete("/fournisseurs/{id}/defaut", h.clearDefault)
	r.Get("/fournisseurs/{id}/historique", h.history)
}

type addPriceRequest struct {
	SupplierID   int64   `json:"fournisseur_id" validate:"required,gt=0"`
	TaxExclusive float64 `json:"prix_ht" validate:"required,gt=0"`
	Regime       string  `json:"regime_fiscal" validate:"required"`
	MakeDefault  bool    `json:"est_fournisseur_defaut"`
}

type updatePriceRequest struct {
	TaxExclusive *float64 `json:"prix_ht" validate:"omitempty,gt=0"`
	Regime       *string  `json:"regime_fiscal"`
	Reason       string   `json:"raison"`
}

func (h *Handler) addPrice(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req addPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	price, err := h.ledger.AddSupplierPrice(r.Context(), AddPriceInput{
		ProductID:    productID,
		SupplierID:   req.SupplierID,
		TaxExclusive: req.TaxExclusive,
		Regime:       fiscal.Regime(req.Regime),
		MakeDefault:  req.MakeDefault,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.CountPriceChange("add")
	httpx.JSON(w, http.StatusCreated, price)
}

func (h *Handler) listForProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r)
	if !ok {
		return
	}
	prices, err := h.ledger.ListForProduct(r.Context(), productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prix": prices})
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	priceID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updatePriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeValidation, "Validation Failed", err.Error())
		return
	}

	input := UpdatePriceInput{PriceID: priceID, TaxExclusive: req.TaxExclusive, Reason: req.Reason}
	if req.Regime != nil {
		regime := fiscal.Regime(*req.Regime)
		input.Regime = &regime
	}
	price, err := h.ledger.UpdatePrice(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.CountPriceChange("update")
	httpx.JSON(w, http.StatusOK, price)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	priceID, ok := pathID(w, r)
	if !ok {
		return
	}
	price, err := h.ledger.GetPrice(r.Context(), priceID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.ledger.SetDefault(r.Context(), price.ProductID, priceID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.CountPriceChange("set_default")
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) clearDefault(w http.ResponseWriter, r *http.Request) {
	priceID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.ClearDefault(r.Context(), priceID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.CountPriceChange("clear_default")
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	priceID, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.ledger.GetHistory(r.Context(), priceID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"historique": entries})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fiscal.ErrInvalidRegime):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeInvalidRegime, "Invalid Regime", "regime_fiscal must be one of tva_18, sans_tva, brs_5")
	case errors.Is(err, fiscal.ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, httpx.CodeInvalidAmount, "Invalid Amount", "prix_ht must be greater than zero")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.CodeNotFound, "Not Found", "price not found")
	default:
		h.logger.Error("pricing request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
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
