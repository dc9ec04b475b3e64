package apikeys

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// storedKey carries the hash alongside the public fields for verification.
type storedKey struct {
	Key
	Hash string
}

// Repository describes API key persistence.
type Repository interface {
	List(ctx context.Context) ([]Key, error)
	Insert(ctx context.Context, key Key, hash string) (Key, error)
	FindByPrefix(ctx context.Context, prefix string) (storedKey, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Key, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, prefixe, nom, scopes, actif, date_creation, date_expiration
		FROM prix.api_keys ORDER BY date_creation DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.Prefix, &k.Name, &k.Scopes, &k.Active, &k.CreatedAt, &k.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *repository) Insert(ctx context.Context, key Key, hash string) (Key, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO prix.api_keys
		(prefixe, key_hash, nom, scopes, actif, date_creation, date_expiration)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		RETURNING id`,
		key.Prefix, hash, key.Name, key.Scopes, now, key.ExpiresAt).Scan(&key.ID)
	if err != nil {
		return Key{}, err
	}
	key.Active = true
	key.CreatedAt = now
	return key, nil
}

func (r *repository) FindByPrefix(ctx context.Context, prefix string) (storedKey, error) {
	var k storedKey
	err := r.pool.QueryRow(ctx, `SELECT id, prefixe, key_hash, nom, scopes, actif, date_creation, date_expiration
		FROM prix.api_keys WHERE prefixe = $1`, prefix).
		Scan(&k.ID, &k.Prefix, &k.Hash, &k.Name, &k.Scopes, &k.Active, &k.CreatedAt, &k.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storedKey{}, ErrNotFound
	}
	return k, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE prix.api_keys SET actif = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
