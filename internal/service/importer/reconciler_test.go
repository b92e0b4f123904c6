package importer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/ledger"
)

type memorySnapshots struct {
	snapshot *models.Snapshot
	saveErr  error
}

func (m *memorySnapshots) Load(context.Context) (models.Snapshot, error) {
	if m.snapshot == nil {
		return models.Snapshot{}, ledger.ErrSnapshotNotFound
	}
	return *m.snapshot, nil
}

func (m *memorySnapshots) Save(_ context.Context, s models.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = &s
	return nil
}

var created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T, recs ...models.MedicineRecord) (*ledger.Store, *memorySnapshots) {
	t.Helper()
	snaps := &memorySnapshots{}
	if len(recs) > 0 {
		snaps.snapshot = &models.Snapshot{Medicines: recs}
	}
	store := ledger.NewStore(snaps, models.Thresholds{Critical: 5, LowMultiplier: decimal.RequireFromString("1.5")}, nil)
	store.Load(context.Background())
	return store, snaps
}

func record(t *testing.T, id int, name string, stock, minStock int, price string) models.MedicineRecord {
	t.Helper()
	r, err := models.NewMedicineRecord(id, name, stock, minStock, decimal.RequireFromString(price), created)
	if err != nil {
		t.Fatalf("NewMedicineRecord: %v", err)
	}
	return r
}

func TestReplaceAllSkipsAndCollectsRowErrors(t *testing.T) {
	store, _ := seededStore(t, record(t, 1, "Old Medicine", 5, 20, "1"))
	rec := NewReconciler(store, 20, nil, nil)

	report, err := rec.ReplaceAll(context.Background(), Table{
		Header: []string{"Medicine_Name", "Stock", "Min_Stock", "Price"},
		Rows: [][]string{
			{"Crocin", "10", "5", "45.50"},
			{"", "3", "1", "2"},
			{"Dolo 650", "7", "", "abc"},
			{"B Complex Syrup", "12.0", "", ""},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if report.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", report.Imported)
	}
	if len(report.Errors) != 1 || report.Errors[0].Row != 3 || report.Errors[0].Field != FieldPrice {
		t.Fatalf("unexpected errors %+v", report.Errors)
	}
	if !errors.Is(report.Errors[0], ErrInvalidNumber) {
		t.Fatalf("row error should wrap ErrInvalidNumber")
	}

	all := store.AllRecords()
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].ID != 1 || all[0].Name != "Crocin" || all[0].MinStock != 5 {
		t.Fatalf("unexpected first record %+v", all[0])
	}
	if all[1].ID != 4 || all[1].Stock != 12 || all[1].MinStock != 20 || !all[1].Price.IsZero() {
		t.Fatalf("unexpected defaults on %+v", all[1])
	}
	if _, ok := store.Resolve("old medicine"); ok {
		t.Fatalf("replace should discard previous records")
	}
}

func TestReplaceAllValidatesBeforeClearing(t *testing.T) {
	store, _ := seededStore(t, record(t, 1, "Crocin", 5, 20, "1"))
	rec := NewReconciler(store, 20, nil, nil)

	_, err := rec.ReplaceAll(context.Background(), Table{
		Header: []string{"Item", "Stock"},
		Rows:   [][]string{{"Crocin", "10"}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("ledger must be untouched after a validation failure")
	}
}

func TestReplaceAllRejectsOutOfRangeCounts(t *testing.T) {
	store, _ := seededStore(t)
	rec := NewReconciler(store, 20, nil, nil)

	report, err := rec.ReplaceAll(context.Background(), Table{
		Header: []string{"Medicine_Name", "Stock", "Min_Stock"},
		Rows: [][]string{
			{"Crocin", "18446744073709551617", ""},
			{"Dolo 650", "7", "99999999999999999999.0"},
			{"Zincovit", "9223372036854775807", ""},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if report.Imported != 1 || len(report.Errors) != 2 {
		t.Fatalf("expected 1 imported and 2 errors, got %d / %+v", report.Imported, report.Errors)
	}
	if report.Errors[0].Row != 1 || report.Errors[0].Field != FieldStock || !errors.Is(report.Errors[0], ErrInvalidNumber) {
		t.Fatalf("unexpected first error %+v", report.Errors[0])
	}
	if report.Errors[1].Row != 2 || report.Errors[1].Field != FieldMinStock {
		t.Fatalf("unexpected second error %+v", report.Errors[1])
	}
	if _, ok := store.Resolve("crocin"); ok {
		t.Fatalf("out-of-range row must not be imported")
	}
	if m, ok := store.Resolve("zincovit"); !ok || m.Record.Stock != math.MaxInt {
		t.Fatalf("MaxInt stock should import intact")
	}
}

func TestReplaceAllPersistenceFailure(t *testing.T) {
	store, snaps := seededStore(t, record(t, 1, "Crocin", 5, 20, "1"))
	snaps.saveErr = errors.New("read-only filesystem")
	rec := NewReconciler(store, 20, nil, nil)

	_, err := rec.ReplaceAll(context.Background(), Table{Header: []string{"name"}, Rows: [][]string{{"Dolo"}}})
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if m, ok := store.Resolve("crocin"); !ok || m.Record.Stock != 5 {
		t.Fatalf("previous ledger should survive a failed save")
	}
}

func TestMergeRestocksAndCreates(t *testing.T) {
	store, _ := seededStore(t,
		record(t, 1, "Crocin", 10, 20, "45"),
		record(t, 7, "Dolo 650", 3, 15, "2"),
	)
	rec := NewReconciler(store, 20, nil, nil)

	report, err := rec.Merge(context.Background(), Table{
		Header: []string{"name", "qty", "rate"},
		Rows: [][]string{
			{"crocin", "15", ""},
			{"Dolo 650", "2", "2.50"},
			{"Azithromycin 500", "30", "120"},
			{"Cetirizine", "-4", ""},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Updated != 2 || report.Created != 1 || len(report.Errors) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	crocin, _ := store.Get(1)
	if crocin.Stock != 25 || !crocin.Price.Equal(decimal.NewFromInt(45)) || crocin.MinStock != 20 {
		t.Fatalf("crocin not restocked additively: %+v", crocin)
	}
	if !crocin.UpdatedAt.After(created) {
		t.Fatalf("updatedAt not refreshed")
	}

	dolo, _ := store.Get(7)
	if dolo.Stock != 5 || !dolo.Price.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("dolo not updated: %+v", dolo)
	}

	azi, err := store.Get(8)
	if err != nil {
		t.Fatalf("new record should take id max+1: %v", err)
	}
	if azi.Stock != 30 || azi.MinStock != 20 {
		t.Fatalf("unexpected new record %+v", azi)
	}

	if report.Details[0].OldStock != 10 || report.Details[0].NewStock != 25 || report.Details[0].Status != DetailUpdated {
		t.Fatalf("unexpected detail %+v", report.Details[0])
	}
}

func TestMergeOverflowIsRowError(t *testing.T) {
	store, _ := seededStore(t,
		record(t, 1, "Crocin", math.MaxInt-5, 20, "45"),
		record(t, 2, "Dolo 650", 10, 20, "2"),
	)
	rec := NewReconciler(store, 20, nil, nil)

	report, err := rec.Merge(context.Background(), Table{
		Header: []string{"Medicine", "Stock"},
		Rows:   [][]string{{"Crocin", "6"}, {"Dolo 650", "5"}},
	})
	if err != nil {
		t.Fatalf("overflow should not abort the merge: %v", err)
	}
	if report.Updated != 1 || len(report.Errors) != 1 {
		t.Fatalf("expected 1 update and 1 error, got %+v", report)
	}
	if e := report.Errors[0]; e.Row != 1 || e.Field != FieldStock || !errors.Is(e, ErrInvalidNumber) {
		t.Fatalf("unexpected row error %+v", e)
	}
	if r, _ := store.Get(1); r.Stock != math.MaxInt-5 {
		t.Fatalf("crocin stock changed to %d", r.Stock)
	}
	if r, _ := store.Get(2); r.Stock != 15 {
		t.Fatalf("expected dolo at 15, got %d", r.Stock)
	}
}

func TestMergeIntoEmptyLedgerStartsAtOne(t *testing.T) {
	store, _ := seededStore(t)
	rec := NewReconciler(store, 20, nil, nil)

	report, err := rec.Merge(context.Background(), Table{
		Header: []string{"Medicine", "Stock"},
		Rows:   [][]string{{"Crocin", "10"}, {"Crocin", "5"}},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Created != 1 || report.Updated != 1 {
		t.Fatalf("second row should restock the record created by the first: %+v", report)
	}
	r, err := store.Get(1)
	if err != nil || r.Stock != 15 {
		t.Fatalf("expected id 1 with 15 in stock, got %+v %v", r, err)
	}
}

func TestMergeRequiresNameColumn(t *testing.T) {
	store, _ := seededStore(t)
	rec := NewReconciler(store, 20, nil, nil)
	if _, err := rec.Merge(context.Background(), Table{Header: []string{"stock"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMapColumnsFirstAliasWins(t *testing.T) {
	cols := MapColumns([]string{" Name ", "MEDICINE_NAME", "Qty", "Stock"}, DefaultAliases)
	if cols[FieldName] != 1 {
		t.Fatalf("medicine_name should win over name, got column %d", cols[FieldName])
	}
	if cols[FieldStock] != 3 {
		t.Fatalf("stock should win over qty, got column %d", cols[FieldStock])
	}
	if cols.Has(FieldPrice) {
		t.Fatalf("price should be absent")
	}
	if cols.Cell([]string{"x"}, FieldStock) != "" {
		t.Fatalf("short row should yield empty cell")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"replace": ModeReplace, "Replace-All": ModeReplace, "add": ModeMerge, "restock": ModeMerge} {
		got, ok := ParseMode(in)
		if !ok || got != want {
			t.Fatalf("ParseMode(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseMode("delete"); ok {
		t.Fatalf("unknown mode accepted")
	}
}
