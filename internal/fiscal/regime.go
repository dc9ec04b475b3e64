// Package fiscal derives the regime-dependent prices from a tax-exclusive
// amount. Amounts are whole FCFA; there are no minor currency units.
package fiscal

import "errors"

// Regime identifies the tax treatment applied to a supplier price.
type Regime string

const (
	// RegimeTVA18 applies the standard 18% VAT rate.
	RegimeTVA18 Regime = "tva_18"
	// RegimeSansTVA is the tax-exempt regime; TTC equals HT.
	RegimeSansTVA Regime = "sans_tva"
	// RegimeBRS5 is the simplified-profit regime with a 5% flat deduction.
	RegimeBRS5 Regime = "brs_5"
)

var (
	// ErrInvalidRegime indicates a regime tag outside the recognized set.
	ErrInvalidRegime = errors.New("fiscal: invalid regime")
	// ErrInvalidAmount indicates a non-positive tax-exclusive amount.
	ErrInvalidAmount = errors.New("fiscal: amount must be positive")
)

// Regimes lists every recognized regime tag.
func Regimes() []Regime {
	return []Regime{RegimeTVA18, RegimeSansTVA, RegimeBRS5}
}

// Valid reports whether r belongs to the closed regime set.
func Valid(r Regime) bool {
	switch r {
	case RegimeTVA18, RegimeSansTVA, RegimeBRS5:
		return true
	}
	return false
}
