package products

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/batiprix/batiprix/internal/dedup"
	"github.com/batiprix/batiprix/internal/shared"
)

type memoryProductRepo struct {
	nextID int64
	items  map[int64]Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{nextID: 1, items: map[int64]Product{}}
}

func (m *memoryProductRepo) List(_ context.Context, filters Filters) ([]Product, error) {
	var out []Product
	for _, p := range m.items {
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if filters.Stockable != nil && p.Stockable != *filters.Stockable {
			continue
		}
		if filters.Active != nil {
			if p.Active != *filters.Active {
				continue
			}
		} else if !filters.IncludeInactive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProductRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.items[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryProductRepo) Create(_ context.Context, product Product) (Product, error) {
	for _, existing := range m.items {
		if existing.Name == product.Name {
			return Product{}, ErrDuplicateName
		}
	}
	product.ID = m.nextID
	m.nextID++
	product.Active = true
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	m.items[product.ID] = product
	return product, nil
}

func (m *memoryProductRepo) Update(_ context.Context, id int64, product Product) error {
	current, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, existing := range m.items {
		if otherID != id && existing.Name == product.Name {
			return ErrDuplicateName
		}
	}
	product.ID = id
	product.Active = current.Active
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now()
	m.items[id] = product
	return nil
}

func (m *memoryProductRepo) SetActive(_ context.Context, id int64, active, stockable bool) error {
	p, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = active
	p.Stockable = stockable
	m.items[id] = p
	return nil
}

func (m *memoryProductRepo) UpdateKey(_ context.Context, id int64, key string) error {
	p, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	p.NormalizedKey = key
	m.items[id] = p
	return nil
}

func (m *memoryProductRepo) MatchCandidates(_ context.Context, category string) ([]dedup.Candidate, error) {
	var out []dedup.Candidate
	for _, p := range m.items {
		if !p.Active || p.IsTemplate {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, dedup.Candidate{ID: p.ID, Name: p.Name, Category: p.Category, Key: p.NormalizedKey})
	}
	return out, nil
}

func TestCreateNormalizesNameAndKey(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateInput{
		Name:     "tube pvc 32mm",
		Category: "plomberie",
		Unit:     "ml",
	})
	require.NoError(t, err)
	require.Equal(t, "Tube PVC 32mm", product.Name)
	require.Equal(t, "32mm pvc tube", product.NormalizedKey)
	require.True(t, product.Active)
	require.Equal(t, shared.SystemActor, product.CreatedBy)
}

func TestCreateCarriesActorFromContext(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	ctx := shared.ContextWithActor(context.Background(), "amadou")
	product, err := svc.Create(ctx, CreateInput{Name: "Ciment 50kg", Category: "gros oeuvre", Unit: "sac"})
	require.NoError(t, err)
	require.Equal(t, "amadou", product.CreatedBy)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "  ", Category: "plomberie", Unit: "ml"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Tube PVC", Category: "", Unit: "ml"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Tube PVC", Category: "plomberie", Unit: ""})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, repo.items)
}

func TestCreateDuplicateName(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)

	// A differently cased raw entry normalizes to the same display name.
	_, err = svc.Create(context.Background(), CreateInput{Name: "TUBE pvc 32MM", Category: "plomberie", Unit: "ml"})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestRenameRecomputesKey(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)

	name := "tube pehd 40mm"
	updated, err := svc.Update(context.Background(), product.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Tube PEHD 40mm", updated.Name)
	require.Equal(t, "40mm pehd tube", updated.NormalizedKey)
}

func TestUpdateSameNameKeepsKey(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)

	name := "tube pvc 32mm"
	updated, err := svc.Update(context.Background(), product.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, product.NormalizedKey, updated.NormalizedKey)
}

func TestDeactivateForcesNonStockable(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateInput{Name: "Casque EPI", Category: "securite", Unit: "u", Stockable: true})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, deactivated.Active)
	require.False(t, deactivated.Stockable)
}

func TestStockableRejectedWhileInactive(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateInput{Name: "Casque EPI", Category: "securite", Unit: "u"})
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), product.ID)
	require.NoError(t, err)

	stockable := true
	_, err = svc.Update(context.Background(), product.ID, UpdateInput{Stockable: &stockable})
	require.ErrorIs(t, err, ErrInactiveStockable)

	reactivated, err := svc.Reactivate(context.Background(), product.ID)
	require.NoError(t, err)
	require.True(t, reactivated.Active)
	require.False(t, reactivated.Stockable)

	updated, err := svc.Update(context.Background(), product.ID, UpdateInput{Stockable: &stockable})
	require.NoError(t, err)
	require.True(t, updated.Stockable)
}

func TestListExcludesInactiveByDefault(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	kept, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)
	gone, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 40mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), gone.ID)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, kept.ID, list[0].ID)

	all, err := svc.List(context.Background(), Filters{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReindexKeysRewritesDriftedRows(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	a, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Name: "Ciment 50kg", Category: "gros oeuvre", Unit: "sac"})
	require.NoError(t, err)

	// Simulate a row written before key derivation existed.
	stale := repo.items[a.ID]
	stale.NormalizedKey = "legacy"
	repo.items[a.ID] = stale

	updated, err := svc.ReindexKeys(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.Equal(t, a.NormalizedKey, repo.items[a.ID].NormalizedKey)

	updated, err = svc.ReindexKeys(context.Background())
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestSearchFlowFindsNearDuplicate(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil)

	existing, err := svc.Create(context.Background(), CreateInput{Name: "Tube PVC 32mm", Category: "plomberie", Unit: "ml"})
	require.NoError(t, err)

	detector := dedup.NewDetector(svc, nil)
	matches, err := detector.FindSimilar(context.Background(), "tube pvc32 mm", "")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Equal(t, existing.ID, matches[0].ID)
	require.GreaterOrEqual(t, matches[0].Score, dedup.SimilarityThreshold)
}
