package suppliers

import (
	"context"
	"fmt"
	"strings"

	"github.com/batiprix/batiprix/internal/fiscal"
)

// Service applies supplier directory business rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput describes a new supplier. An empty RegimeHint defaults to
// tva_18.
type CreateInput struct {
	Name       string
	Contact    *string
	Phone      *string
	Email      *string
	Address    *string
	RegimeHint fiscal.Regime
}

// UpdateInput describes a partial supplier edit. Nil fields keep the current
// value.
type UpdateInput struct {
	Name       *string
	Contact    *string
	Phone      *string
	Email      *string
	Address    *string
	RegimeHint *fiscal.Regime
}

func (s *Service) List(ctx context.Context) ([]SupplierWithStats, error) {
	return s.repo.ListWithStats(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Supplier{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	hint := input.RegimeHint
	if hint == "" {
		hint = fiscal.RegimeTVA18
	}
	if !fiscal.Valid(hint) {
		return Supplier{}, fiscal.ErrInvalidRegime
	}

	return s.repo.Create(ctx, Supplier{
		Name:       name,
		Contact:    input.Contact,
		Phone:      input.Phone,
		Email:      input.Email,
		Address:    input.Address,
		RegimeHint: hint,
	})
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Supplier, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Supplier{}, fmt.Errorf("%w: name is required", ErrValidation)
		}
		current.Name = name
	}
	if input.Contact != nil {
		current.Contact = input.Contact
	}
	if input.Phone != nil {
		current.Phone = input.Phone
	}
	if input.Email != nil {
		current.Email = input.Email
	}
	if input.Address != nil {
		current.Address = input.Address
	}
	if input.RegimeHint != nil {
		if !fiscal.Valid(*input.RegimeHint) {
			return Supplier{}, fiscal.ErrInvalidRegime
		}
		current.RegimeHint = *input.RegimeHint
	}

	if err := s.repo.Update(ctx, id, current); err != nil {
		return Supplier{}, err
	}
	return current, nil
}

// Deactivate hides the supplier from quoting flows. Existing prices stay
// active and keep their default flags.
func (s *Service) Deactivate(ctx context.Context, id int64) (Supplier, error) {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Reactivate(ctx context.Context, id int64) (Supplier, error) {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}
