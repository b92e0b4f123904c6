package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/metrics"
	repo "github.com/mamadbah2/medstock/internal/repository/sheets"
	"github.com/mamadbah2/medstock/internal/service/sales"
)

const dateLayout = "2006-01-02"

// Inventory is the read side of the ledger used for reports.
type Inventory interface {
	AllRecords() []models.MedicineRecord
	LowStock() []models.MedicineRecord
	CriticalStock() []models.MedicineRecord
	Classify(record models.MedicineRecord) models.StockStatus
}

// ReportStore archives generated daily reports.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Service exposes inventory summaries for chat replies and the daily report.
type Service struct {
	repo              repo.Repository
	inventory         Inventory
	reports           ReportStore
	transactionsRange string
	loc               *time.Location
	metrics           *metrics.Metrics
	logger            *zap.Logger
}

// NewService wires a new reporting service instance. repo and reports may be nil.
func NewService(repository repo.Repository, inventory Inventory, reports ReportStore, transactionsRange string, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:              repository,
		inventory:         inventory,
		reports:           reports,
		transactionsRange: transactionsRange,
		loc:               loc,
		metrics:           m,
		logger:            logger,
	}
}

// TodaySales aggregates the sold transactions logged on the calendar day of day.
func (s *Service) TodaySales(ctx context.Context, day time.Time) (models.SalesSummary, error) {
	day = day.In(s.loc)
	summary := models.SalesSummary{Date: day, Total: decimal.Zero}
	if s.repo == nil || s.transactionsRange == "" {
		return summary, nil
	}

	rows, err := s.repo.ReadRange(ctx, s.transactionsRange)
	if err != nil {
		return summary, fmt.Errorf("load transactions range: %w", err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	for _, row := range rows {
		tx, err := sales.ParseTransactionRow(row, s.loc)
		if err != nil {
			s.logger.Debug("skip transaction row", zap.Any("row", row), zap.Error(err))
			continue
		}
		if tx.Type != models.DirectionSold || tx.Timestamp.Before(start) || !tx.Timestamp.Before(end) {
			continue
		}

		summary.Total = summary.Total.Add(tx.Price.Mul(decimal.NewFromInt(int64(tx.Quantity))))
		summary.ItemsSold += tx.Quantity
		summary.Entries++
	}

	return summary, nil
}

// BuildDailyReport assembles the report for the day containing now without storing it.
func (s *Service) BuildDailyReport(ctx context.Context, now time.Time) models.DailyReport {
	records := s.inventory.AllRecords()

	report := models.DailyReport{
		Date:          now.In(s.loc),
		TotalProducts: len(records),
		CreatedAt:     now.UTC(),
	}

	value := decimal.Zero
	for _, r := range records {
		value = value.Add(r.StockValue())

		status := s.inventory.Classify(r)
		if status == models.StatusCritical {
			report.CriticalItems++
		}
		if status.NeedsAttention() {
			report.Alerts = append(report.Alerts, models.StockAlert{ID: r.ID, Name: r.Name, Stock: r.Stock, MinStock: r.MinStock, Status: status})
		}
	}
	report.TotalStockValue = value.InexactFloat64()
	report.LowStockItems = len(s.inventory.LowStock())

	summary, err := s.TodaySales(ctx, now)
	if err != nil {
		s.logger.Warn("daily report without sales figures", zap.Error(err))
	}
	report.SalesTotal = summary.Total.InexactFloat64()
	report.ItemsSold = summary.ItemsSold

	return report
}

// GenerateDailyReport builds the daily report and archives it. The report is
// returned even when archiving fails.
func (s *Service) GenerateDailyReport(ctx context.Context, now time.Time) (models.DailyReport, error) {
	report := s.BuildDailyReport(ctx, now)
	s.metrics.SetLedgerSize(report.TotalProducts, report.LowStockItems)
	s.metrics.ObserveReport()

	if s.reports == nil {
		return report, nil
	}
	if err := s.reports.SaveDailyReport(ctx, report); err != nil {
		return report, fmt.Errorf("archive daily report: %w", err)
	}
	return report, nil
}

// FormatDailyReport renders the chat summary of a daily report.
func FormatDailyReport(report models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Inventory Report: %s\n\n", report.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Today's total sales: %.2f (%d items)\n", report.SalesTotal, report.ItemsSold)
	fmt.Fprintf(&b, "Products in stock list: %d\n", report.TotalProducts)
	fmt.Fprintf(&b, "Total stock value: %.2f\n", report.TotalStockValue)
	fmt.Fprintf(&b, "Low stock items: %d (critical %d)", report.LowStockItems, report.CriticalItems)

	for _, alert := range report.Alerts {
		fmt.Fprintf(&b, "\n- %s: %d left (min %d) [%s]", alert.Name, alert.Stock, alert.MinStock, strings.ToUpper(string(alert.Status)))
	}
	return b.String()
}

// InventorySummary renders every record with its stock status.
func (s *Service) InventorySummary() string {
	records := s.inventory.AllRecords()
	if len(records) == 0 {
		return "Inventory is empty. Upload a sheet with 'import' to get started."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inventory (%d medicines)", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "\n%s %s: %d (min %d) @ %s", statusMark(s.inventory.Classify(r)), r.Name, r.Stock, r.MinStock, r.Price.StringFixed(2))
	}
	return b.String()
}

// LowStockSummary renders the low-stock list, lowest stock first.
func (s *Service) LowStockSummary() string {
	low := s.inventory.LowStock()
	if len(low) == 0 {
		return "All medicines are sufficiently stocked."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Low stock (%d medicines)", len(low))
	for _, r := range low {
		fmt.Fprintf(&b, "\n%s %s: %d left (min %d)", statusMark(s.inventory.Classify(r)), r.Name, r.Stock, r.MinStock)
	}
	return b.String()
}

// TodaySummary renders today's sales figures.
func (s *Service) TodaySummary(ctx context.Context, now time.Time) (string, error) {
	summary, err := s.TodaySales(ctx, now)
	if err != nil {
		return "", err
	}
	if summary.Entries == 0 {
		return fmt.Sprintf("Sales (%s): no transactions yet.", summary.Date.Format(dateLayout)), nil
	}
	return fmt.Sprintf("Sales (%s): %s across %d items in %d entries.", summary.Date.Format(dateLayout), summary.Total.StringFixed(2), summary.ItemsSold, summary.Entries), nil
}

func statusMark(status models.StockStatus) string {
	switch status {
	case models.StatusCritical:
		return "[CRITICAL]"
	case models.StatusLow:
		return "[LOW]"
	case models.StatusWarning:
		return "[WARN]"
	default:
		return "[OK]"
	}
}
