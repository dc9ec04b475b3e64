package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/batiprix/batiprix/internal/dedup"
	"github.com/batiprix/batiprix/internal/naming"
	"github.com/batiprix/batiprix/internal/shared"
)

// Service applies catalog business rules on top of the repository. It owns
// the normalized-key lifecycle: the key is recomputed from the display name
// on every create and rename.
type Service struct {
	repo  Repository
	cache *dedup.KeyCache
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *dedup.KeyCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// CreateInput describes a new catalog entry.
type CreateInput struct {
	Name       string
	Category   string
	Subsection *string
	Unit       string
	Stockable  bool
	Length     *float64
	Width      *float64
	Color      *string
	IsTemplate bool
}

// UpdateInput describes a partial product edit. Nil fields keep the current
// value.
type UpdateInput struct {
	Name       *string
	Subsection *string
	Stockable  *bool
	Length     *float64
	Width      *float64
	Color      *string
}

func (s *Service) List(ctx context.Context, filters Filters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create normalizes the display name, derives the matching key and persists
// the entry. The duplicate check is a separate, caller-initiated call.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	name := naming.NormalizeDisplayName(input.Name)
	if err := validateCreate(name, input); err != nil {
		return Product{}, err
	}

	product, err := s.repo.Create(ctx, Product{
		Name:          name,
		NormalizedKey: naming.Key(name),
		Category:      strings.TrimSpace(input.Category),
		Subsection:    normalizeSubsection(input.Subsection),
		Unit:          strings.TrimSpace(input.Unit),
		Stockable:     input.Stockable,
		Length:        input.Length,
		Width:         input.Width,
		Color:         input.Color,
		IsTemplate:    input.IsTemplate,
		CreatedBy:     shared.ActorFromContext(ctx),
	})
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return product, nil
}

// Update edits a product in place. A rename recomputes the normalized key;
// marking an inactive product stockable is rejected.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	renamed := false
	if input.Name != nil {
		name := naming.NormalizeDisplayName(*input.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name is required", ErrValidation)
		}
		if name != current.Name {
			current.Name = name
			current.NormalizedKey = naming.Key(name)
			renamed = true
		}
	}
	if input.Subsection != nil {
		current.Subsection = normalizeSubsection(input.Subsection)
	}
	if input.Stockable != nil {
		if *input.Stockable && !current.Active {
			return Product{}, ErrInactiveStockable
		}
		current.Stockable = *input.Stockable
	}
	if input.Length != nil {
		current.Length = input.Length
	}
	if input.Width != nil {
		current.Width = input.Width
	}
	if input.Color != nil {
		current.Color = input.Color
	}

	if err := s.repo.Update(ctx, id, current); err != nil {
		return Product{}, err
	}
	if renamed {
		s.invalidate(ctx)
	}
	return current, nil
}

// Deactivate soft-deletes the product: active=false also forces
// stockable=false. Prices are untouched.
func (s *Service) Deactivate(ctx context.Context, id int64) (Product, error) {
	if err := s.repo.SetActive(ctx, id, false, false); err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Reactivate restores a deactivated product. Stockable stays false until
// explicitly toggled back.
func (s *Service) Reactivate(ctx context.Context, id int64) (Product, error) {
	if err := s.repo.SetActive(ctx, id, true, false); err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// ReindexKeys recomputes the normalized key of every product and rewrites
// the rows whose stored key drifted from the derived one. Returns the number
// of rewritten rows.
func (s *Service) ReindexKeys(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx, Filters{IncludeInactive: true})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, p := range all {
		key := naming.Key(p.Name)
		if key == p.NormalizedKey {
			continue
		}
		if err := s.repo.UpdateKey(ctx, p.ID, key); err != nil {
			return updated, err
		}
		updated++
	}
	if updated > 0 {
		s.invalidate(ctx)
	}
	return updated, nil
}

// MatchCandidates exposes the repository as a dedup.CandidateSource.
func (s *Service) MatchCandidates(ctx context.Context, category string) ([]dedup.Candidate, error) {
	return s.repo.MatchCandidates(ctx, category)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx)
	}
}

func validateCreate(name string, input CreateInput) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if strings.TrimSpace(input.Unit) == "" {
		return fmt.Errorf("%w: unit is required", ErrValidation)
	}
	return nil
}

// normalizeSubsection maps blank or "tous" placeholders to no subsection.
func normalizeSubsection(subsection *string) *string {
	if subsection == nil {
		return nil
	}
	value := strings.TrimSpace(*subsection)
	if value == "" || strings.EqualFold(value, "tous") {
		return nil
	}
	return &value
}
