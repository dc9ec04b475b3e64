// Package units manages measurement units referenced by catalog entries.
package units

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Unit is a measurement unit, keyed by its short code (ml, m2, sac, u).
type Unit struct {
	ID    int64   `json:"id"`
	Code  string  `json:"code"`
	Label string  `json:"libelle"`
	Type  *string `json:"type"`
}

var (
	ErrDuplicate  = errors.New("units: code already exists")
	ErrValidation = errors.New("units: code and libelle are required")
)

type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func (s *Service) List(ctx context.Context) ([]Unit, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, libelle, type FROM referentiel.unites ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Code, &u.Label, &u.Type); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Service) Create(ctx context.Context, code, label string, unitType *string) (Unit, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	label = strings.TrimSpace(label)
	if code == "" || label == "" {
		return Unit{}, ErrValidation
	}

	u := Unit{Code: code, Label: label, Type: unitType}
	err := s.pool.QueryRow(ctx, `INSERT INTO referentiel.unites (code, libelle, type)
		VALUES ($1, $2, $3) RETURNING id`, code, label, unitType).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Unit{}, ErrDuplicate
		}
		return Unit{}, err
	}
	return u, nil
}
