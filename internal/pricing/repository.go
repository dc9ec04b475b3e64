package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batiprix/batiprix/internal/fiscal"
)

const priceColumns = `id, produit_master_id, fournisseur_id, prix_ht, regime_fiscal, prix_ttc, prix_brs, est_fournisseur_defaut, actif, cree_par, date_creation, date_modification`

// Repository provides PostgreSQL backed persistence for supplier prices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a ledger transaction.
// Only this package may flip a row's default or active flag.
type TxRepository interface {
	ActivePriceForSupplier(ctx context.Context, productID, supplierID int64) (SupplierPrice, bool, error)
	CountActive(ctx context.Context, productID int64) (int, error)
	Archive(ctx context.Context, priceID int64) error
	ClearDefaults(ctx context.Context, productID int64) error
	ClearDefaultFlag(ctx context.Context, priceID int64) error
	SetDefaultFlag(ctx context.Context, priceID int64) error
	Insert(ctx context.Context, price SupplierPrice) (SupplierPrice, error)
	GetForUpdate(ctx context.Context, priceID int64) (SupplierPrice, error)
	UpdateAmounts(ctx context.Context, priceID int64, prices fiscal.Prices, regime fiscal.Regime) error
	InsertHistory(ctx context.Context, entry HistoryEntry) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction. The archive, default
// bookkeeping, insert and history steps of one ledger operation all commit
// or roll back together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Get returns one price row by id.
func (r *Repository) Get(ctx context.Context, id int64) (SupplierPrice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+priceColumns+` FROM prix.prix_fournisseurs WHERE id = $1`, id)
	return scanPrice(row)
}

// ListForProduct returns every price row of a product, newest first, joined
// with the supplier name. Archived rows are included; callers filter.
func (r *Repository) ListForProduct(ctx context.Context, productID int64) ([]PriceWithSupplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.produit_master_id, p.fournisseur_id, p.prix_ht, p.regime_fiscal, p.prix_ttc, p.prix_brs,
		       p.est_fournisseur_defaut, p.actif, p.cree_par, p.date_creation, p.date_modification, f.nom
		FROM prix.prix_fournisseurs p
		JOIN prix.fournisseurs f ON f.id = p.fournisseur_id
		WHERE p.produit_master_id = $1
		ORDER BY p.date_creation DESC, p.id DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []PriceWithSupplier
	for rows.Next() {
		var p PriceWithSupplier
		var regime string
		if err := rows.Scan(&p.ID, &p.ProductID, &p.SupplierID, &p.TaxExclusive, &regime, &p.TaxInclusive, &p.BRS,
			&p.IsDefault, &p.Active, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.SupplierName); err != nil {
			return nil, err
		}
		p.Regime = fiscal.Regime(regime)
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// History returns the change entries for a price row and for every other row
// sharing its (product, supplier) pair, newest first. Following the pair
// keeps the chain intact across archive-and-replace cycles.
func (r *Repository) History(ctx context.Context, priceID int64) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.id, h.prix_fournisseur_id, h.prix_ht_ancien, h.prix_ht_nouveau,
		       h.regime_fiscal_ancien, h.regime_fiscal_nouveau, h.modifie_par, h.date_modification, COALESCE(h.raison, '')
		FROM prix.historique_prix h
		JOIN prix.prix_fournisseurs p ON p.id = h.prix_fournisseur_id
		WHERE (p.produit_master_id, p.fournisseur_id) IN (
			SELECT produit_master_id, fournisseur_id FROM prix.prix_fournisseurs WHERE id = $1
		)
		ORDER BY h.date_modification DESC, h.id DESC`, priceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var prevRegime *string
		var newRegime string
		if err := rows.Scan(&e.ID, &e.PriceID, &e.PreviousAmount, &e.NewAmount,
			&prevRegime, &newRegime, &e.ChangedBy, &e.ChangedAt, &e.Reason); err != nil {
			return nil, err
		}
		if prevRegime != nil {
			r := fiscal.Regime(*prevRegime)
			e.PreviousRegime = &r
		}
		e.NewRegime = fiscal.Regime(newRegime)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *txRepo) ActivePriceForSupplier(ctx context.Context, productID, supplierID int64) (SupplierPrice, bool, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+priceColumns+` FROM prix.prix_fournisseurs
		WHERE produit_master_id = $1 AND fournisseur_id = $2 AND actif = TRUE
		FOR UPDATE`, productID, supplierID)
	price, err := scanPrice(row)
	if errors.Is(err, ErrNotFound) {
		return SupplierPrice{}, false, nil
	}
	if err != nil {
		return SupplierPrice{}, false, err
	}
	return price, true, nil
}

func (t *txRepo) CountActive(ctx context.Context, productID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM prix.prix_fournisseurs
		WHERE produit_master_id = $1 AND actif = TRUE`, productID).Scan(&count)
	return count, err
}

func (t *txRepo) Archive(ctx context.Context, priceID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE prix.prix_fournisseurs
		SET actif = FALSE, est_fournisseur_defaut = FALSE, date_modification = NOW()
		WHERE id = $1`, priceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ClearDefaults(ctx context.Context, productID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE prix.prix_fournisseurs
		SET est_fournisseur_defaut = FALSE, date_modification = NOW()
		WHERE produit_master_id = $1 AND est_fournisseur_defaut = TRUE`, productID)
	return err
}

func (t *txRepo) ClearDefaultFlag(ctx context.Context, priceID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE prix.prix_fournisseurs
		SET est_fournisseur_defaut = FALSE, date_modification = NOW()
		WHERE id = $1`, priceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetDefaultFlag(ctx context.Context, priceID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE prix.prix_fournisseurs
		SET est_fournisseur_defaut = TRUE, date_modification = NOW()
		WHERE id = $1 AND actif = TRUE`, priceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) Insert(ctx context.Context, price SupplierPrice) (SupplierPrice, error) {
	now := time.Now()
	err := t.tx.QueryRow(ctx, `INSERT INTO prix.prix_fournisseurs
		(produit_master_id, fournisseur_id, prix_ht, regime_fiscal, prix_ttc, prix_brs, est_fournisseur_defaut, actif, cree_par, date_creation, date_modification)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $9)
		RETURNING id`,
		price.ProductID, price.SupplierID, price.TaxExclusive, string(price.Regime),
		price.TaxInclusive, price.BRS, price.IsDefault, price.CreatedBy, now).Scan(&price.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// foreign key violation: the product or supplier does not exist
			return SupplierPrice{}, ErrNotFound
		}
		return SupplierPrice{}, err
	}
	price.Active = true
	price.CreatedAt = now
	price.UpdatedAt = now
	return price, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, priceID int64) (SupplierPrice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+priceColumns+` FROM prix.prix_fournisseurs WHERE id = $1 FOR UPDATE`, priceID)
	return scanPrice(row)
}

func (t *txRepo) UpdateAmounts(ctx context.Context, priceID int64, prices fiscal.Prices, regime fiscal.Regime) error {
	tag, err := t.tx.Exec(ctx, `UPDATE prix.prix_fournisseurs
		SET prix_ht = $1, regime_fiscal = $2, prix_ttc = $3, prix_brs = $4, date_modification = NOW()
		WHERE id = $5`,
		prices.TaxExclusive, string(regime), prices.TaxInclusive, prices.BRS, priceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	var prevRegime *string
	if entry.PreviousRegime != nil {
		s := string(*entry.PreviousRegime)
		prevRegime = &s
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO prix.historique_prix
		(prix_fournisseur_id, prix_ht_ancien, prix_ht_nouveau, regime_fiscal_ancien, regime_fiscal_nouveau, modifie_par, date_modification, raison)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NULLIF($7, ''))`,
		entry.PriceID, entry.PreviousAmount, entry.NewAmount, prevRegime, string(entry.NewRegime), entry.ChangedBy, entry.Reason)
	return err
}

func scanPrice(row pgx.Row) (SupplierPrice, error) {
	var p SupplierPrice
	var regime string
	err := row.Scan(&p.ID, &p.ProductID, &p.SupplierID, &p.TaxExclusive, &regime, &p.TaxInclusive, &p.BRS,
		&p.IsDefault, &p.Active, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierPrice{}, ErrNotFound
	}
	if err != nil {
		return SupplierPrice{}, err
	}
	p.Regime = fiscal.Regime(regime)
	return p, nil
}
