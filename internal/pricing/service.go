package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/batiprix/batiprix/internal/fiscal"
	"github.com/batiprix/batiprix/internal/shared"
)

// RepositoryPort describes the repository operations used by the Ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (SupplierPrice, error)
	ListForProduct(ctx context.Context, productID int64) ([]PriceWithSupplier, error)
	History(ctx context.Context, priceID int64) ([]HistoryEntry, error)
}

// Ledger is the only component allowed to mutate supplier-price rows. Every
// public operation runs in a single transaction; the acting user is read
// from the ambient context (shared.ActorFromContext).
type Ledger struct {
	repo RepositoryPort
}

// NewLedger constructs a Ledger.
func NewLedger(repo RepositoryPort) *Ledger {
	return &Ledger{repo: repo}
}

// AddPriceInput describes a new supplier price for a product.
type AddPriceInput struct {
	ProductID    int64
	SupplierID   int64
	TaxExclusive float64
	Regime       fiscal.Regime
	MakeDefault  bool
}

// UpdatePriceInput describes an in-place amount/regime change. Nil fields
// keep the current value.
type UpdatePriceInput struct {
	PriceID      int64
	TaxExclusive *float64
	Regime       *fiscal.Regime
	Reason       string
}

// AddSupplierPrice records a new price for a (product, supplier) pair. Any
// previously active row for the pair is archived, not deleted. The new row
// becomes the product's default when the caller asked for it, when the
// archived row already was the default, or when it is the product's first
// active price.
func (l *Ledger) AddSupplierPrice(ctx context.Context, input AddPriceInput) (SupplierPrice, error) {
	prices, err := fiscal.Derive(input.TaxExclusive, input.Regime)
	if err != nil {
		return SupplierPrice{}, err
	}
	actor := shared.ActorFromContext(ctx)

	var created SupplierPrice
	err = l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		prior, found, err := tx.ActivePriceForSupplier(ctx, input.ProductID, input.SupplierID)
		if err != nil {
			return err
		}
		inheritDefault := false
		if found {
			// Archival changes only the active flag, never amount or regime,
			// so it writes no history entry. The archived row stays queryable.
			inheritDefault = prior.IsDefault
			if err := tx.Archive(ctx, prior.ID); err != nil {
				return err
			}
		}

		remaining, err := tx.CountActive(ctx, input.ProductID)
		if err != nil {
			return err
		}
		makeDefault := input.MakeDefault || inheritDefault
		if remaining == 0 {
			// A product's first active price is always the default,
			// regardless of what the caller asked for.
			makeDefault = true
		}
		if makeDefault {
			if err := tx.ClearDefaults(ctx, input.ProductID); err != nil {
				return err
			}
		}

		created, err = tx.Insert(ctx, SupplierPrice{
			ProductID:    input.ProductID,
			SupplierID:   input.SupplierID,
			TaxExclusive: prices.TaxExclusive,
			Regime:       input.Regime,
			TaxInclusive: prices.TaxInclusive,
			BRS:          prices.BRS,
			IsDefault:    makeDefault,
			CreatedBy:    actor,
		})
		return err
	})
	if err != nil {
		return SupplierPrice{}, storageErr(err)
	}
	return created, nil
}

// UpdatePrice changes the amount and/or regime of an existing row in place
// and records a history entry when either value actually changed. A no-op
// resubmission of identical values writes no history.
func (l *Ledger) UpdatePrice(ctx context.Context, input UpdatePriceInput) (SupplierPrice, error) {
	actor := shared.ActorFromContext(ctx)

	var updated SupplierPrice
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.PriceID)
		if err != nil {
			return err
		}

		amount := current.TaxExclusive
		if input.TaxExclusive != nil {
			amount = *input.TaxExclusive
		}
		regime := current.Regime
		if input.Regime != nil {
			regime = *input.Regime
		}

		prices, err := fiscal.Derive(amount, regime)
		if err != nil {
			return err
		}
		if err := tx.UpdateAmounts(ctx, current.ID, prices, regime); err != nil {
			return err
		}

		if amount != current.TaxExclusive || regime != current.Regime {
			prevAmount := current.TaxExclusive
			prevRegime := current.Regime
			if err := tx.InsertHistory(ctx, HistoryEntry{
				PriceID:        current.ID,
				PreviousAmount: &prevAmount,
				NewAmount:      amount,
				PreviousRegime: &prevRegime,
				NewRegime:      regime,
				ChangedBy:      actor,
				Reason:         input.Reason,
			}); err != nil {
				return err
			}
		}

		updated = current
		updated.TaxExclusive = amount
		updated.Regime = regime
		updated.TaxInclusive = prices.TaxInclusive
		updated.BRS = prices.BRS
		return nil
	})
	if err != nil {
		return SupplierPrice{}, storageErr(err)
	}
	return updated, nil
}

// SetDefault makes priceID the product's single default price: every other
// active row of the product loses the flag in the same transaction. The
// caller is responsible for passing a price that belongs to the product.
func (l *Ledger) SetDefault(ctx context.Context, productID, priceID int64) error {
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, priceID); err != nil {
			return err
		}
		if err := tx.ClearDefaults(ctx, productID); err != nil {
			return err
		}
		return tx.SetDefaultFlag(ctx, priceID)
	})
	return storageErr(err)
}

// ClearDefault removes the default flag from exactly one row without
// promoting a replacement. The product may be left with active prices and no
// default until a later SetDefault call.
func (l *Ledger) ClearDefault(ctx context.Context, priceID int64) error {
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ClearDefaultFlag(ctx, priceID)
	})
	return storageErr(err)
}

// GetPrice returns one price row.
func (l *Ledger) GetPrice(ctx context.Context, priceID int64) (SupplierPrice, error) {
	price, err := l.repo.Get(ctx, priceID)
	if err != nil {
		return SupplierPrice{}, storageErr(err)
	}
	return price, nil
}

// ListForProduct returns every price row of a product, archived included.
func (l *Ledger) ListForProduct(ctx context.Context, productID int64) ([]PriceWithSupplier, error) {
	prices, err := l.repo.ListForProduct(ctx, productID)
	if err != nil {
		return nil, storageErr(err)
	}
	return prices, nil
}

// GetHistory returns the change chain for a price row, newest first. The
// chain follows the row's (product, supplier) pair across archive-and-replace
// cycles, so a freshly inserted replacement row sees its predecessors' edits.
func (l *Ledger) GetHistory(ctx context.Context, priceID int64) ([]HistoryEntry, error) {
	if _, err := l.repo.Get(ctx, priceID); err != nil {
		return nil, storageErr(err)
	}
	entries, err := l.repo.History(ctx, priceID)
	if err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// storageErr wraps unexpected persistence failures in ErrStorage while
// letting domain error kinds pass through untouched.
func storageErr(err error) error {
	if err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, fiscal.ErrInvalidRegime) ||
		errors.Is(err, fiscal.ErrInvalidAmount) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
