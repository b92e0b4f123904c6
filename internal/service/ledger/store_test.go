package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medstock/internal/domain/models"
)

type memorySnapshots struct {
	mu      sync.Mutex
	saved   *models.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func (m *memorySnapshots) Load(context.Context) (models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return models.Snapshot{}, m.loadErr
	}
	if m.saved == nil {
		return models.Snapshot{}, ErrSnapshotNotFound
	}
	return *m.saved, nil
}

func (m *memorySnapshots) Save(_ context.Context, snapshot models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := snapshot
	cp.Medicines = append([]models.MedicineRecord(nil), snapshot.Medicines...)
	m.saved = &cp
	m.saves++
	return nil
}

func testThresholds() models.Thresholds {
	return models.Thresholds{Critical: 5, LowMultiplier: decimal.RequireFromString("1.5")}
}

func newTestStore(t *testing.T, recs []models.MedicineRecord) (*Store, *memorySnapshots) {
	t.Helper()
	snaps := &memorySnapshots{}
	if recs != nil {
		snaps.saved = &models.Snapshot{Medicines: recs}
	}
	store := NewStore(snaps, testThresholds(), nil)
	store.now = func() time.Time { return time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC) }
	store.Load(context.Background())
	return store, snaps
}

func TestStoreLoadMissingSnapshotStartsEmpty(t *testing.T) {
	store, _ := newTestStore(t, nil)
	if store.Count() != 0 {
		t.Fatalf("expected empty ledger, got %d", store.Count())
	}
}

func TestStoreLoadRejectsCorruptSnapshot(t *testing.T) {
	snaps := &memorySnapshots{loadErr: errors.New("unexpected end of JSON input")}
	store := NewStore(snaps, testThresholds(), nil)
	store.Load(context.Background())
	if store.Count() != 0 {
		t.Fatalf("corrupt snapshot should leave the ledger empty")
	}

	dup := records(t, "a", "b")
	dup[1].ID = dup[0].ID
	store, _ = newTestStore(t, dup)
	if store.Count() != 0 {
		t.Fatalf("duplicate ids should be rejected")
	}
}

func TestStoreLoadFillsSearchName(t *testing.T) {
	recs := records(t, "Crocin")
	recs[0].SearchName = ""
	store, _ := newTestStore(t, recs)
	if m, ok := store.Resolve("crocin"); !ok || m.Score != ScoreExact {
		t.Fatalf("expected exact match after load, got %+v %v", m, ok)
	}
}

func TestStoreAdjustSoldAndBought(t *testing.T) {
	store, snaps := newTestStore(t, records(t, "Crocin"))
	ctx := context.Background()

	r, err := store.Adjust(ctx, 1, 10, models.DirectionSold)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if r.Stock != 40 {
		t.Fatalf("expected 40, got %d", r.Stock)
	}
	if !r.UpdatedAt.Equal(store.now()) {
		t.Fatalf("updatedAt not refreshed")
	}

	r, err = store.Adjust(ctx, 1, 5, models.DirectionBought)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if r.Stock != 45 || snaps.saved.Medicines[0].Stock != 45 {
		t.Fatalf("expected persisted 45, got %d / %d", r.Stock, snaps.saved.Medicines[0].Stock)
	}
}

func TestStoreAdjustInsufficientStockLeavesStock(t *testing.T) {
	store, snaps := newTestStore(t, records(t, "Crocin"))
	before := snaps.saves

	_, err := store.Adjust(context.Background(), 1, 51, models.DirectionSold)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	got, _ := store.Get(1)
	if got.Stock != 50 {
		t.Fatalf("stock changed to %d", got.Stock)
	}
	if snaps.saves != before {
		t.Fatalf("failed adjustment should not persist")
	}

	if _, err := store.Adjust(context.Background(), 1, 50, models.DirectionSold); err != nil {
		t.Fatalf("selling the full stock should succeed: %v", err)
	}
	got, _ = store.Get(1)
	if got.Stock != 0 {
		t.Fatalf("expected 0, got %d", got.Stock)
	}
}

func TestStoreAdjustValidation(t *testing.T) {
	store, _ := newTestStore(t, records(t, "Crocin"))
	ctx := context.Background()

	if _, err := store.Adjust(ctx, 1, 0, models.DirectionSold); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := store.Adjust(ctx, 1, 1, models.Direction("lost")); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
	if _, err := store.Adjust(ctx, 99, 1, models.DirectionSold); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestStoreAdjustBoughtRejectsOverflow(t *testing.T) {
	store, snaps := newTestStore(t, records(t, "Crocin"))
	ctx := context.Background()
	before := snaps.saves

	_, err := store.Adjust(ctx, 1, math.MaxInt, models.DirectionBought)
	if !errors.Is(err, ErrStockOverflow) {
		t.Fatalf("expected ErrStockOverflow, got %v", err)
	}
	got, _ := store.Get(1)
	if got.Stock != 50 || snaps.saves != before {
		t.Fatalf("overflowing purchase changed state: stock=%d saves=%d", got.Stock, snaps.saves)
	}

	if _, err := store.Adjust(ctx, 1, math.MaxInt-50, models.DirectionBought); err != nil {
		t.Fatalf("purchase up to MaxInt should succeed: %v", err)
	}

	restarted := NewStore(snaps, testThresholds(), nil)
	restarted.Load(ctx)
	if restarted.Count() != 1 {
		t.Fatalf("snapshot should reload after a large purchase, got %d records", restarted.Count())
	}
	if got, _ := restarted.Get(1); got.Stock != math.MaxInt {
		t.Fatalf("expected MaxInt after reload, got %d", got.Stock)
	}
}

func TestStorePersistenceFailureKeepsPreviousState(t *testing.T) {
	store, snaps := newTestStore(t, records(t, "Crocin"))
	snaps.saveErr = errors.New("disk full")

	_, err := store.Adjust(context.Background(), 1, 10, models.DirectionSold)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	got, _ := store.Get(1)
	if got.Stock != 50 {
		t.Fatalf("in-memory stock changed despite failed save: %d", got.Stock)
	}
}

func TestStoreAdjustByQuery(t *testing.T) {
	store, _ := newTestStore(t, records(t, "Dolo 650", "Crocin"))
	ctx := context.Background()

	res, err := store.AdjustByQuery(ctx, "croc", 2, models.DirectionSold)
	if err != nil {
		t.Fatalf("AdjustByQuery: %v", err)
	}
	if res.Record.ID != 2 || res.Record.Stock != 48 || res.Score != ScorePrefix || res.Status != models.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := store.AdjustByQuery(ctx, "zzzz", 1, models.DirectionSold); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	res, err = store.AdjustByQuery(ctx, "crocin", 100, models.DirectionSold)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if res.Record.Stock != 48 {
		t.Fatalf("failed sale should report current stock, got %d", res.Record.Stock)
	}
}

func TestStoreMutateValidatesBeforeCommit(t *testing.T) {
	store, _ := newTestStore(t, records(t, "Crocin"))
	err := store.Mutate(context.Background(), func(recs []models.MedicineRecord, _ time.Time) ([]models.MedicineRecord, error) {
		recs[0].Stock = -1
		return recs, nil
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	got, _ := store.Get(1)
	if got.Stock != 50 {
		t.Fatalf("ledger changed after rejected mutation")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store, snaps := newTestStore(t, records(t, "Crocin", "Dolo 650"))
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewStore(snaps, testThresholds(), nil)
	reloaded.Load(context.Background())

	want, got := store.AllRecords(), reloaded.AllRecords()
	if len(want) != len(got) {
		t.Fatalf("record count mismatch %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID || want[i].Name != got[i].Name || want[i].Stock != got[i].Stock || !want[i].Price.Equal(got[i].Price) {
			t.Fatalf("record %d differs: %+v vs %+v", i, want[i], got[i])
		}
	}
}

func TestStoreLowAndCriticalStock(t *testing.T) {
	recs := records(t, "a", "b", "c", "d")
	recs[0].Stock = 30
	recs[1].Stock = 4
	recs[2].Stock = 31
	recs[3].Stock = 18
	store, _ := newTestStore(t, recs)

	low := store.LowStock()
	if len(low) != 3 || low[0].Name != "b" || low[1].Name != "d" || low[2].Name != "a" {
		t.Fatalf("unexpected low stock order %+v", low)
	}

	critical := store.CriticalStock()
	if len(critical) != 1 || critical[0].Name != "b" {
		t.Fatalf("unexpected critical %+v", critical)
	}
}

func TestStoreConcurrentSalesNeverGoNegative(t *testing.T) {
	store, _ := newTestStore(t, records(t, "Crocin"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AdjustByQuery(ctx, "crocin", 1, models.DirectionSold)
		}()
	}
	wg.Wait()

	got, _ := store.Get(1)
	if got.Stock != 0 {
		t.Fatalf("expected stock to settle at 0, got %d", got.Stock)
	}
}
