package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batiprix/batiprix/internal/dedup"
)

const productColumns = `id, nom, nom_normalise, categorie, sous_section, unite, est_stockable, actif, longueur, largeur, couleur, est_template, cree_par, date_creation, date_modification`

// Repository describes product persistence.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	SetActive(ctx context.Context, id int64, active, stockable bool) error
	UpdateKey(ctx context.Context, id int64, key string) error
	MatchCandidates(ctx context.Context, category string) ([]dedup.Candidate, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters Filters) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM referentiel.produits_master WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Category != "" {
		argCount++
		query += ` AND categorie = $` + strconv.Itoa(argCount)
		args = append(args, filters.Category)
	}
	if filters.Stockable != nil {
		argCount++
		query += ` AND est_stockable = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Stockable)
	}
	if filters.Active != nil {
		argCount++
		query += ` AND actif = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Active)
	} else if !filters.IncludeInactive {
		query += ` AND actif = TRUE`
	}
	if filters.WithPrice != nil {
		op := "EXISTS"
		if !*filters.WithPrice {
			op = "NOT EXISTS"
		}
		query += ` AND ` + op + ` (SELECT 1 FROM prix.prix_fournisseurs p WHERE p.produit_master_id = referentiel.produits_master.id AND p.actif = TRUE)`
	}
	query += ` ORDER BY nom ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM referentiel.produits_master WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO referentiel.produits_master
		(nom, nom_normalise, categorie, sous_section, unite, est_stockable, actif, longueur, largeur, couleur, est_template, cree_par, date_creation, date_modification)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id`,
		product.Name, product.NormalizedKey, product.Category, product.Subsection, product.Unit,
		product.Stockable, product.Length, product.Width, product.Color, product.IsTemplate,
		product.CreatedBy, now).Scan(&product.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateName
		}
		return Product{}, err
	}
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE referentiel.produits_master
		SET nom = $1, nom_normalise = $2, categorie = $3, sous_section = $4, unite = $5,
		    est_stockable = $6, longueur = $7, largeur = $8, couleur = $9, date_modification = NOW()
		WHERE id = $10`,
		product.Name, product.NormalizedKey, product.Category, product.Subsection, product.Unit,
		product.Stockable, product.Length, product.Width, product.Color, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active, stockable bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE referentiel.produits_master
		SET actif = $1, est_stockable = $2, date_modification = NOW()
		WHERE id = $3`, active, stockable, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateKey(ctx context.Context, id int64, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE referentiel.produits_master
		SET nom_normalise = $1, date_modification = NOW()
		WHERE id = $2`, key, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MatchCandidates lists active, non-template products for duplicate
// matching, optionally restricted to one category.
func (r *repository) MatchCandidates(ctx context.Context, category string) ([]dedup.Candidate, error) {
	query := `SELECT id, nom, categorie, nom_normalise FROM referentiel.produits_master
		WHERE actif = TRUE AND est_template = FALSE`
	args := []any{}
	if category != "" {
		query += ` AND categorie = $1`
		args = append(args, category)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []dedup.Candidate
	for rows.Next() {
		var c dedup.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.Key); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.NormalizedKey, &p.Category, &p.Subsection, &p.Unit,
		&p.Stockable, &p.Active, &p.Length, &p.Width, &p.Color, &p.IsTemplate,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
