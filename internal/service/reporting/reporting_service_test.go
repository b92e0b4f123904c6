package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/sales"
)

type fakeInventory struct {
	records    []models.MedicineRecord
	thresholds models.Thresholds
}

func (f fakeInventory) AllRecords() []models.MedicineRecord { return f.records }

func (f fakeInventory) LowStock() []models.MedicineRecord {
	var out []models.MedicineRecord
	for _, r := range f.records {
		if f.thresholds.Classify(r) != models.StatusOK {
			out = append(out, r)
		}
	}
	return out
}

func (f fakeInventory) CriticalStock() []models.MedicineRecord {
	var out []models.MedicineRecord
	for _, r := range f.records {
		if f.thresholds.Classify(r) == models.StatusCritical {
			out = append(out, r)
		}
	}
	return out
}

func (f fakeInventory) Classify(r models.MedicineRecord) models.StockStatus {
	return f.thresholds.Classify(r)
}

type fakeSheets struct {
	values [][]interface{}
	err    error
}

func (f fakeSheets) AppendRows(context.Context, string, [][]interface{}) error { return nil }

func (f fakeSheets) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.values, f.err
}

type fakeReports struct {
	saved []models.DailyReport
	err   error
}

func (f *fakeReports) SaveDailyReport(_ context.Context, r models.DailyReport) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, r)
	return nil
}

func txRow(ts time.Time, name string, qty int, price string, dir models.Direction) []interface{} {
	return sales.TransactionRow(models.Transaction{
		ID:           uuid.New(),
		Timestamp:    ts,
		MedicineName: name,
		Quantity:     qty,
		Price:        decimal.RequireFromString(price),
		Type:         dir,
	})
}

func testInventory() fakeInventory {
	return fakeInventory{
		thresholds: models.Thresholds{Critical: 5, LowMultiplier: decimal.RequireFromString("1.5")},
		records: []models.MedicineRecord{
			{ID: 1, Name: "Crocin", Stock: 100, MinStock: 20, Price: decimal.NewFromInt(2)},
			{ID: 2, Name: "Dolo 650", Stock: 4, MinStock: 20, Price: decimal.RequireFromString("1.5")},
			{ID: 3, Name: "B Complex Syrup", Stock: 25, MinStock: 20, Price: decimal.NewFromInt(40)},
		},
	}
}

func TestTodaySalesFiltersDayAndDirection(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2024, 6, 1, 21, 0, 0, 0, loc)
	sheet := fakeSheets{values: [][]interface{}{
		{"ID", "Timestamp", "Medicine Name", "Quantity", "Price", "Type", "Remaining Stock"},
		txRow(time.Date(2024, 6, 1, 9, 0, 0, 0, loc), "crocin", 10, "2", models.DirectionSold),
		txRow(time.Date(2024, 6, 1, 23, 59, 0, 0, loc), "dolo", 3, "1.50", models.DirectionSold),
		txRow(time.Date(2024, 6, 1, 12, 0, 0, 0, loc), "crocin", 50, "1.8", models.DirectionBought),
		txRow(time.Date(2024, 5, 31, 23, 0, 0, 0, loc), "crocin", 7, "2", models.DirectionSold),
	}}
	svc := NewService(sheet, testInventory(), nil, "Transactions!A:G", loc, nil, nil)

	summary, err := svc.TodaySales(context.Background(), day)
	if err != nil {
		t.Fatalf("TodaySales: %v", err)
	}
	if summary.Entries != 2 || summary.ItemsSold != 13 || !summary.Total.Equal(decimal.RequireFromString("24.5")) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestGenerateDailyReport(t *testing.T) {
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	sheet := fakeSheets{values: [][]interface{}{txRow(now.Add(-time.Hour), "crocin", 5, "2", models.DirectionSold)}}
	reports := &fakeReports{}
	svc := NewService(sheet, testInventory(), reports, "Transactions!A:G", time.UTC, nil, nil)

	report, err := svc.GenerateDailyReport(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateDailyReport: %v", err)
	}
	if report.TotalProducts != 3 || report.TotalStockValue != 1206 {
		t.Fatalf("unexpected totals %+v", report)
	}
	if report.LowStockItems != 2 || report.CriticalItems != 1 || len(report.Alerts) != 1 || report.Alerts[0].Name != "Dolo 650" {
		t.Fatalf("unexpected alerts %+v", report)
	}
	if report.SalesTotal != 10 || report.ItemsSold != 5 {
		t.Fatalf("unexpected sales %+v", report)
	}
	if len(reports.saved) != 1 {
		t.Fatalf("report not archived")
	}

	text := FormatDailyReport(report)
	for _, want := range []string{"2024-06-01", "10.00 (5 items)", "Total stock value: 1206.00", "Dolo 650: 4 left", "[CRITICAL]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report text missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateDailyReportArchiveFailure(t *testing.T) {
	svc := NewService(nil, testInventory(), &fakeReports{err: errors.New("mongo down")}, "", time.UTC, nil, nil)
	report, err := svc.GenerateDailyReport(context.Background(), time.Now())
	if err == nil {
		t.Fatalf("expected archive error")
	}
	if report.TotalProducts != 3 {
		t.Fatalf("report should still be built, got %+v", report)
	}
}

func TestBuildDailyReportSurvivesSheetError(t *testing.T) {
	svc := NewService(fakeSheets{err: errors.New("quota")}, testInventory(), nil, "Transactions!A:G", time.UTC, nil, nil)
	report := svc.BuildDailyReport(context.Background(), time.Now())
	if report.TotalProducts != 3 || report.SalesTotal != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSummaries(t *testing.T) {
	svc := NewService(nil, testInventory(), nil, "", time.UTC, nil, nil)

	inv := svc.InventorySummary()
	if !strings.Contains(inv, "Inventory (3 medicines)") || !strings.Contains(inv, "[CRITICAL] Dolo 650: 4 (min 20) @ 1.50") {
		t.Fatalf("unexpected inventory summary:\n%s", inv)
	}

	low := svc.LowStockSummary()
	if !strings.Contains(low, "Low stock (2 medicines)") || !strings.Contains(low, "[WARN] B Complex Syrup") {
		t.Fatalf("unexpected low stock summary:\n%s", low)
	}

	empty := NewService(nil, fakeInventory{}, nil, "", time.UTC, nil, nil)
	if !strings.Contains(empty.LowStockSummary(), "sufficiently stocked") {
		t.Fatalf("unexpected empty low stock summary")
	}

	today, err := svc.TodaySummary(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || !strings.Contains(today, "no transactions yet") {
		t.Fatalf("unexpected today summary %q %v", today, err)
	}
}
