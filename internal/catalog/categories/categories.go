// Package categories manages catalog sections and their display order.
package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batiprix/batiprix/internal/platform/db"
)

// Category is a catalog section. DisplayOrder drives UI ordering and is
// managed through Reorder swaps only.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"nom"`
	DisplayOrder int    `json:"ordre_affichage"`
	Stockable    bool   `json:"est_stockable"`
}

// Direction moves a category one slot in the display order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

var (
	ErrNotFound  = errors.New("categories: not found")
	ErrDuplicate = errors.New("categories: name already exists")
	ErrBoundary  = errors.New("categories: already at the boundary")
	ErrName      = errors.New("categories: name is required")
)

// Service persists categories directly; the package is small enough not to
// warrant a separate repository layer.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, nom, ordre_affichage, est_stockable
		FROM referentiel.categories ORDER BY ordre_affichage ASC, nom ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.Stockable); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create appends a new category at the end of the display order.
func (s *Service) Create(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, ErrName
	}

	var created Category
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var maxOrder int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(ordre_affichage), 0) FROM referentiel.categories`).Scan(&maxOrder); err != nil {
			return err
		}
		created = Category{Name: name, DisplayOrder: maxOrder + 1, Stockable: true}
		err := tx.QueryRow(ctx, `INSERT INTO referentiel.categories (nom, ordre_affichage, est_stockable)
			VALUES ($1, $2, TRUE) RETURNING id`, name, created.DisplayOrder).Scan(&created.ID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicate
			}
		}
		return err
	})
	if err != nil {
		return Category{}, err
	}
	return created, nil
}

// SetStockable toggles whether products of this category default to stock
// tracking.
func (s *Service) SetStockable(ctx context.Context, id int64, stockable bool) (Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, `UPDATE referentiel.categories SET est_stockable = $1
		WHERE id = $2 RETURNING id, nom, ordre_affichage, est_stockable`,
		stockable, id).Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.Stockable)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

// Reorder swaps the category's display slot with its neighbour in the given
// direction. Moving past either end returns ErrBoundary.
func (s *Service) Reorder(ctx context.Context, id int64, direction Direction) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("categories: unknown direction %q", direction)
	}

	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, ordre_affichage FROM referentiel.categories
			ORDER BY ordre_affichage ASC, nom ASC FOR UPDATE`)
		if err != nil {
			return err
		}
		type slot struct {
			id    int64
			order int
		}
		var slots []slot
		for rows.Next() {
			var sl slot
			if err := rows.Scan(&sl.id, &sl.order); err != nil {
				rows.Close()
				return err
			}
			slots = append(slots, sl)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		index := -1
		for i, sl := range slots {
			if sl.id == id {
				index = i
				break
			}
		}
		if index == -1 {
			return ErrNotFound
		}
		swap := index - 1
		if direction == DirectionDown {
			swap = index + 1
		}
		if swap < 0 || swap >= len(slots) {
			return ErrBoundary
		}

		if _, err := tx.Exec(ctx, `UPDATE referentiel.categories SET ordre_affichage = $1 WHERE id = $2`,
			slots[swap].order, slots[index].id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE referentiel.categories SET ordre_affichage = $1 WHERE id = $2`,
			slots[index].order, slots[swap].id)
		return err
	})
}
