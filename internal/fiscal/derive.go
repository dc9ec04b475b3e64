package fiscal

import "math"

// Prices carries a tax-exclusive amount and the derived amounts for its
// regime. Exactly one of TaxInclusive and BRS is set, except under
// RegimeSansTVA where TaxInclusive mirrors the tax-exclusive amount.
type Prices struct {
	TaxExclusive float64
	TaxInclusive *float64
	BRS          *float64
}

// Derive computes the regime-dependent prices for a tax-exclusive amount.
// Rounding is half away from zero to the nearest whole FCFA, so repeated
// derivations of the same input always agree bit for bit.
func Derive(taxExclusive float64, regime Regime) (Prices, error) {
	if taxExclusive <= 0 {
		return Prices{}, ErrInvalidAmount
	}
	switch regime {
	case RegimeTVA18:
		ttc := math.Round(taxExclusive * 1.18)
		return Prices{TaxExclusive: taxExclusive, TaxInclusive: &ttc}, nil
	case RegimeSansTVA:
		ttc := taxExclusive
		return Prices{TaxExclusive: taxExclusive, TaxInclusive: &ttc}, nil
	case RegimeBRS5:
		brs := math.Round(taxExclusive / 0.95)
		return Prices{TaxExclusive: taxExclusive, BRS: &brs}, nil
	default:
		return Prices{}, ErrInvalidRegime
	}
}
