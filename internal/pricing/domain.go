// Package pricing owns the supplier-price rows of the referential: it
// enforces the single-default-per-product invariant, archives superseded
// prices instead of deleting them, and records every amount or regime change
// in an immutable history.
package pricing

import (
	"errors"
	"time"

	"github.com/batiprix/batiprix/internal/fiscal"
)

var (
	// ErrNotFound indicates a referenced product, supplier or price is missing.
	ErrNotFound = errors.New("pricing: not found")
	// ErrStorage wraps persistence failures after the transaction rolled back.
	ErrStorage = errors.New("pricing: storage failure")
)

// SupplierPrice is the tax-exclusive price one supplier offers for one
// product under one fiscal regime, plus the regime-derived amounts.
type SupplierPrice struct {
	ID           int64         `json:"id"`
	ProductID    int64         `json:"produit_master_id"`
	SupplierID   int64         `json:"fournisseur_id"`
	TaxExclusive float64       `json:"prix_ht"`
	Regime       fiscal.Regime `json:"regime_fiscal"`
	TaxInclusive *float64      `json:"prix_ttc"`
	BRS          *float64      `json:"prix_brs"`
	IsDefault    bool          `json:"est_fournisseur_defaut"`
	Active       bool          `json:"actif"`
	CreatedBy    string        `json:"cree_par"`
	CreatedAt    time.Time     `json:"date_creation"`
	UpdatedAt    time.Time     `json:"date_modification"`
}

// PriceWithSupplier joins a price row with its supplier's display name.
type PriceWithSupplier struct {
	SupplierPrice
	SupplierName string `json:"fournisseur_nom"`
}

// HistoryEntry is an immutable, attributed record of one amount or regime
// change on a price row. Entries are insert-only.
type HistoryEntry struct {
	ID             int64          `json:"id"`
	PriceID        int64          `json:"prix_fournisseur_id"`
	PreviousAmount *float64       `json:"prix_ht_ancien"`
	NewAmount      float64        `json:"prix_ht_nouveau"`
	PreviousRegime *fiscal.Regime `json:"regime_fiscal_ancien"`
	NewRegime      fiscal.Regime  `json:"regime_fiscal_nouveau"`
	ChangedBy      string         `json:"modifie_par"`
	ChangedAt      time.Time      `json:"date_modification"`
	Reason         string         `json:"raison,omitempty"`
}
