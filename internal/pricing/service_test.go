package pricing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/batiprix/batiprix/internal/fiscal"
	"github.com/batiprix/batiprix/internal/shared"
)

type memoryPriceRepo struct {
	prices  map[int64]SupplierPrice
	history []HistoryEntry
	nextID  int64
	clock   time.Time
}

type memoryPriceTx struct {
	repo *memoryPriceRepo
}

func newMemoryPriceRepo() *memoryPriceRepo {
	return &memoryPriceRepo{
		prices: make(map[int64]SupplierPrice),
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memoryPriceRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryPriceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryPriceTx{repo: r})
}

func (r *memoryPriceRepo) Get(ctx context.Context, id int64) (SupplierPrice, error) {
	p, ok := r.prices[id]
	if !ok {
		return SupplierPrice{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryPriceRepo) ListForProduct(ctx context.Context, productID int64) ([]PriceWithSupplier, error) {
	var prices []PriceWithSupplier
	for _, p := range r.prices {
		if p.ProductID == productID {
			prices = append(prices, PriceWithSupplier{SupplierPrice: p})
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].ID > prices[j].ID })
	return prices, nil
}

func (r *memoryPriceRepo) History(ctx context.Context, priceID int64) ([]HistoryEntry, error) {
	ref, ok := r.prices[priceID]
	if !ok {
		return nil, ErrNotFound
	}
	var entries []HistoryEntry
	for _, e := range r.history {
		row, ok := r.prices[e.PriceID]
		if !ok {
			continue
		}
		if row.ProductID == ref.ProductID && row.SupplierID == ref.SupplierID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChangedAt.Equal(entries[j].ChangedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].ChangedAt.After(entries[j].ChangedAt)
	})
	return entries, nil
}

func (t *memoryPriceTx) ActivePriceForSupplier(ctx context.Context, productID, supplierID int64) (SupplierPrice, bool, error) {
	for _, p := range t.repo.prices {
		if p.ProductID == productID && p.SupplierID == supplierID && p.Active {
			return p, true, nil
		}
	}
	return SupplierPrice{}, false, nil
}

func (t *memoryPriceTx) CountActive(ctx context.Context, productID int64) (int, error) {
	count := 0
	for _, p := range t.repo.prices {
		if p.ProductID == productID && p.Active {
			count++
		}
	}
	return count, nil
}

func (t *memoryPriceTx) Archive(ctx context.Context, priceID int64) error {
	p, ok := t.repo.prices[priceID]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	p.IsDefault = false
	p.UpdatedAt = t.repo.tick()
	t.repo.prices[priceID] = p
	return nil
}

func (t *memoryPriceTx) ClearDefaults(ctx context.Context, productID int64) error {
	for id, p := range t.repo.prices {
		if p.ProductID == productID && p.IsDefault {
			p.IsDefault = false
			t.repo.prices[id] = p
		}
	}
	return nil
}

func (t *memoryPriceTx) ClearDefaultFlag(ctx context.Context, priceID int64) error {
	p, ok := t.repo.prices[priceID]
	if !ok {
		return ErrNotFound
	}
	p.IsDefault = false
	t.repo.prices[priceID] = p
	return nil
}

func (t *memoryPriceTx) SetDefaultFlag(ctx context.Context, priceID int64) error {
	p, ok := t.repo.prices[priceID]
	if !ok || !p.Active {
		return ErrNotFound
	}
	p.IsDefault = true
	t.repo.prices[priceID] = p
	return nil
}

func (t *memoryPriceTx) Insert(ctx context.Context, price SupplierPrice) (SupplierPrice, error) {
	t.repo.nextID++
	price.ID = t.repo.nextID
	price.Active = true
	now := t.repo.tick()
	price.CreatedAt = now
	price.UpdatedAt = now
	t.repo.prices[price.ID] = price
	return price, nil
}

func (t *memoryPriceTx) GetForUpdate(ctx context.Context, priceID int64) (SupplierPrice, error) {
	p, ok := t.repo.prices[priceID]
	if !ok {
		return SupplierPrice{}, ErrNotFound
	}
	return p, nil
}

func (t *memoryPriceTx) UpdateAmounts(ctx context.Context, priceID int64, prices fiscal.Prices, regime fiscal.Regime) error {
	p, ok := t.repo.prices[priceID]
	if !ok {
		return ErrNotFound
	}
	p.TaxExclusive = prices.TaxExclusive
	p.TaxInclusive = prices.TaxInclusive
	p.BRS = prices.BRS
	p.Regime = regime
	p.UpdatedAt = t.repo.tick()
	t.repo.prices[priceID] = p
	return nil
}

func (t *memoryPriceTx) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	t.repo.nextID++
	entry.ID = t.repo.nextID
	entry.ChangedAt = t.repo.tick()
	t.repo.history = append(t.repo.history, entry)
	return nil
}

func actorCtx(name string) context.Context {
	return shared.ContextWithActor(context.Background(), name)
}

func activeDefaults(repo *memoryPriceRepo, productID int64) []SupplierPrice {
	var defaults []SupplierPrice
	for _, p := range repo.prices {
		if p.ProductID == productID && p.Active && p.IsDefault {
			defaults = append(defaults, p)
		}
	}
	return defaults
}

func TestFirstPriceIsForcedDefault(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)

	price, err := ledger.AddSupplierPrice(actorCtx("alice"), AddPriceInput{
		ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18, MakeDefault: false,
	})
	require.NoError(t, err)
	require.True(t, price.IsDefault, "first price must be default even when not requested")
	require.True(t, price.Active)
	require.NotNil(t, price.TaxInclusive)
	require.Equal(t, 1180.0, *price.TaxInclusive)
	require.Nil(t, price.BRS)
	require.Equal(t, "alice", price.CreatedBy)
}

func TestSupplierReplacesOwnPrice(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)

	first, err := ledger.AddSupplierPrice(actorCtx("alice"), AddPriceInput{
		ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18,
	})
	require.NoError(t, err)

	second, err := ledger.AddSupplierPrice(actorCtx("bob"), AddPriceInput{
		ProductID: 1, SupplierID: 1, TaxExclusive: 1200, Regime: fiscal.RegimeTVA18, MakeDefault: false,
	})
	require.NoError(t, err)

	// Two rows total, exactly one active, the old one archived not deleted.
	require.Len(t, repo.prices, 2)
	archived, err := repo.Get(context.Background(), first.ID)
	require.NoError(t, err)
	require.False(t, archived.Active)
	require.False(t, archived.IsDefault)
	require.Equal(t, 1000.0, archived.TaxExclusive)

	require.True(t, second.Active)
	require.True(t, second.IsDefault, "default status is inherited from the archived row")
	require.NotNil(t, second.TaxInclusive)
	require.Equal(t, 1416.0, *second.TaxInclusive)
	require.Len(t, activeDefaults(repo, 1), 1)
}

func TestDefaultInvariantAcrossSuppliers(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	p1, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	p2, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 2, TaxExclusive: 900, Regime: fiscal.RegimeSansTVA})
	require.NoError(t, err)
	require.False(t, p2.IsDefault, "second supplier does not steal the default")
	require.Len(t, activeDefaults(repo, 1), 1)

	p3, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 3, TaxExclusive: 800, Regime: fiscal.RegimeBRS5, MakeDefault: true})
	require.NoError(t, err)
	require.True(t, p3.IsDefault)

	defaults := activeDefaults(repo, 1)
	require.Len(t, defaults, 1)
	require.Equal(t, p3.ID, defaults[0].ID)

	prev, err := repo.Get(ctx, p1.ID)
	require.NoError(t, err)
	require.False(t, prev.IsDefault, "previous default was cleared in the same transaction")
}

func TestSetDefaultMovesFlag(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	p1, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)
	p2, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 2, TaxExclusive: 950, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	require.NoError(t, ledger.SetDefault(ctx, 1, p2.ID))
	defaults := activeDefaults(repo, 1)
	require.Len(t, defaults, 1)
	require.Equal(t, p2.ID, defaults[0].ID)

	moved, err := repo.Get(ctx, p1.ID)
	require.NoError(t, err)
	require.False(t, moved.IsDefault)

	require.ErrorIs(t, ledger.SetDefault(ctx, 1, 999), ErrNotFound)
}

func TestClearDefaultDoesNotPromote(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	p1, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)
	_, err = ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 2, TaxExclusive: 900, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	require.NoError(t, ledger.ClearDefault(ctx, p1.ID))
	require.Empty(t, activeDefaults(repo, 1), "clearing the default promotes no replacement")

	require.ErrorIs(t, ledger.ClearDefault(ctx, 999), ErrNotFound)
}

func TestUpdatePriceRecordsHistory(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	price, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)
	require.Empty(t, repo.history, "creation writes no history entry")

	amount := 1100.0
	updated, err := ledger.UpdatePrice(actorCtx("bob"), UpdatePriceInput{PriceID: price.ID, TaxExclusive: &amount})
	require.NoError(t, err)
	require.Equal(t, 1100.0, updated.TaxExclusive)
	require.NotNil(t, updated.TaxInclusive)
	require.Equal(t, 1298.0, *updated.TaxInclusive)

	require.Len(t, repo.history, 1)
	entry := repo.history[0]
	require.Equal(t, price.ID, entry.PriceID)
	require.NotNil(t, entry.PreviousAmount)
	require.Equal(t, 1000.0, *entry.PreviousAmount)
	require.Equal(t, 1100.0, entry.NewAmount)
	require.Equal(t, "bob", entry.ChangedBy)
}

func TestUpdatePriceNoOpWritesNoHistory(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	price, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	amount := 1000.0
	regime := fiscal.RegimeTVA18
	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: price.ID, TaxExclusive: &amount, Regime: &regime})
	require.NoError(t, err)
	require.Empty(t, repo.history)
}

func TestUpdatePriceRegimeOnlyChange(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	price, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	regime := fiscal.RegimeBRS5
	updated, err := ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: price.ID, Regime: &regime})
	require.NoError(t, err)
	require.Nil(t, updated.TaxInclusive)
	require.NotNil(t, updated.BRS)
	require.Equal(t, 1053.0, *updated.BRS)

	require.Len(t, repo.history, 1)
	entry := repo.history[0]
	require.NotNil(t, entry.PreviousAmount)
	require.Equal(t, entry.NewAmount, *entry.PreviousAmount, "amount unchanged on regime-only edit")
	require.NotNil(t, entry.PreviousRegime)
	require.Equal(t, fiscal.RegimeTVA18, *entry.PreviousRegime)
	require.Equal(t, fiscal.RegimeBRS5, entry.NewRegime)
}

func TestUpdatePriceValidation(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	price, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	bad := -5.0
	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: price.ID, TaxExclusive: &bad})
	require.ErrorIs(t, err, fiscal.ErrInvalidAmount)

	badRegime := fiscal.Regime("vat_99")
	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: price.ID, Regime: &badRegime})
	require.ErrorIs(t, err, fiscal.ErrInvalidRegime)

	// Failed validations leave the row and history untouched.
	current, err := repo.Get(ctx, price.ID)
	require.NoError(t, err)
	require.Equal(t, 1000.0, current.TaxExclusive)
	require.Equal(t, fiscal.RegimeTVA18, current.Regime)
	require.Empty(t, repo.history)

	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: 999})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddSupplierPriceInvalidInputLeavesNoRow(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	_, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.Regime("vat_99")})
	require.ErrorIs(t, err, fiscal.ErrInvalidRegime)

	_, err = ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 0, Regime: fiscal.RegimeTVA18})
	require.ErrorIs(t, err, fiscal.ErrInvalidAmount)

	require.Empty(t, repo.prices)
	require.Empty(t, repo.history)
}

func TestHistoryFollowsSupplierChainAcrossArchival(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)
	ctx := actorCtx("alice")

	first, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1000, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	amount := 1050.0
	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: first.ID, TaxExclusive: &amount})
	require.NoError(t, err)

	second, err := ledger.AddSupplierPrice(ctx, AddPriceInput{ProductID: 1, SupplierID: 1, TaxExclusive: 1200, Regime: fiscal.RegimeTVA18})
	require.NoError(t, err)

	amount = 1300.0
	_, err = ledger.UpdatePrice(ctx, UpdatePriceInput{PriceID: second.ID, TaxExclusive: &amount})
	require.NoError(t, err)

	// The new row's history includes the archived row's edits.
	entries, err := ledger.GetHistory(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, second.ID, entries[0].PriceID, "newest first")
	require.Equal(t, first.ID, entries[1].PriceID)

	_, err = ledger.GetHistory(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestActorDefaultsToSystem(t *testing.T) {
	repo := newMemoryPriceRepo()
	ledger := NewLedger(repo)

	price, err := ledger.AddSupplierPrice(context.Background(), AddPriceInput{
		ProductID: 1, SupplierID: 1, TaxExclusive: 500, Regime: fiscal.RegimeSansTVA,
	})
	require.NoError(t, err)
	require.Equal(t, shared.SystemActor, price.CreatedBy)

	amount := 600.0
	_, err = ledger.UpdatePrice(context.Background(), UpdatePriceInput{PriceID: price.ID, TaxExclusive: &amount})
	require.NoError(t, err)
	require.Len(t, repo.history, 1)
	require.Equal(t, shared.SystemActor, repo.history[0].ChangedBy)
}
