// Package products manages the master catalog of construction materials.
package products

import (
	"errors"
	"time"
)

// Product is a catalog entry. NormalizedKey is always derived from Name and
// never edited independently.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"nom"`
	NormalizedKey string    `json:"nom_normalise"`
	Category      string    `json:"categorie"`
	Subsection    *string   `json:"sous_section"`
	Unit          string    `json:"unite"`
	Stockable     bool      `json:"est_stockable"`
	Active        bool      `json:"actif"`
	Length        *float64  `json:"longueur"`
	Width         *float64  `json:"largeur"`
	Color         *string   `json:"couleur"`
	IsTemplate    bool      `json:"est_template"`
	CreatedBy     string    `json:"cree_par"`
	CreatedAt     time.Time `json:"date_creation"`
	UpdatedAt     time.Time `json:"date_modification"`
}

// Filters narrows List results.
type Filters struct {
	Category        string
	Stockable       *bool
	Active          *bool
	IncludeInactive bool
	WithPrice       *bool
}

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("products: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("products: invalid input")
	// ErrDuplicateName indicates another product already carries this exact name.
	ErrDuplicateName = errors.New("products: name already exists")
	// ErrInactiveStockable indicates an attempt to mark an inactive product stockable.
	ErrInactiveStockable = errors.New("products: inactive product cannot be stockable")
)
