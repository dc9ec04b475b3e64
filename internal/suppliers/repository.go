package suppliers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const supplierColumns = `id, nom, contact, telephone, email, adresse, statut_tva, actif, date_creation`

// Repository describes supplier persistence.
type Repository interface {
	ListWithStats(ctx context.Context) ([]SupplierWithStats, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListWithStats(ctx context.Context) ([]SupplierWithStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+`,
		COALESCE((SELECT COUNT(DISTINCT p.produit_master_id)
			FROM prix.prix_fournisseurs p
			WHERE p.fournisseur_id = prix.fournisseurs.id AND p.actif = TRUE), 0)
		FROM prix.fournisseurs
		ORDER BY nom ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupplierWithStats
	for rows.Next() {
		var s SupplierWithStats
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.Address,
			&s.RegimeHint, &s.Active, &s.CreatedAt, &s.ProductCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM prix.fournisseurs WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.Address, &s.RegimeHint, &s.Active, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO prix.fournisseurs
		(nom, contact, telephone, email, adresse, statut_tva, actif, date_creation)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		RETURNING id`,
		supplier.Name, supplier.Contact, supplier.Phone, supplier.Email, supplier.Address,
		supplier.RegimeHint, now).Scan(&supplier.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Supplier{}, ErrDuplicate
		}
		return Supplier{}, err
	}
	supplier.Active = true
	supplier.CreatedAt = now
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE prix.fournisseurs
		SET nom = $1, contact = $2, telephone = $3, email = $4, adresse = $5, statut_tva = $6
		WHERE id = $7`,
		supplier.Name, supplier.Contact, supplier.Phone, supplier.Email, supplier.Address,
		supplier.RegimeHint, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE prix.fournisseurs SET actif = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
