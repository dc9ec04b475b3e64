// Package suppliers manages the supplier directory referenced by the price
// ledger.
package suppliers

import (
	"errors"
	"time"

	"github.com/batiprix/batiprix/internal/fiscal"
)

// Supplier is a supplier directory entry. RegimeHint pre-fills the fiscal
// regime when a price is quoted for this supplier; the ledger never reads it.
type Supplier struct {
	ID         int64         `json:"id"`
	Name       string        `json:"nom"`
	Contact    *string       `json:"contact"`
	Phone      *string       `json:"telephone"`
	Email      *string       `json:"email"`
	Address    *string       `json:"adresse"`
	RegimeHint fiscal.Regime `json:"statut_tva"`
	Active     bool          `json:"actif"`
	CreatedAt  time.Time     `json:"date_creation"`
}

// SupplierWithStats adds the number of distinct products this supplier
// quotes a price for.
type SupplierWithStats struct {
	Supplier
	ProductCount int `json:"nb_produits"`
}

var (
	ErrNotFound   = errors.New("suppliers: not found")
	ErrDuplicate  = errors.New("suppliers: name already exists")
	ErrValidation = errors.New("suppliers: invalid input")
)
