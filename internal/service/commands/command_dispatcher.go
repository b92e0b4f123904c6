package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	repo "github.com/mamadbah2/medstock/internal/repository/sheets"
	"github.com/mamadbah2/medstock/internal/service/importer"
	"github.com/mamadbah2/medstock/internal/service/reporting"
	"github.com/mamadbah2/medstock/internal/service/sales"
)

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	pendingImportTTL = 15 * time.Minute
	maxDetailLines   = 10
	maxErrorLines    = 5
)

const helpText = `Help
- Send sales one per line: <medicine> <qty> <price>, e.g.
  crocin 10 150
  dolo 5 125
- buy <medicine> <qty> <price> records purchases
- inventory, low, today, report show stock and sales
- import [Sheet!A:D] loads stock from the spreadsheet`

// SalesProcessor applies sales messages to the ledger.
type SalesProcessor interface {
	ProcessMessage(ctx context.Context, text string, direction models.Direction) (sales.BatchResult, error)
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	InventorySummary() string
	LowStockSummary() string
	TodaySummary(ctx context.Context, now time.Time) (string, error)
	BuildDailyReport(ctx context.Context, now time.Time) models.DailyReport
}

// Importer reconciles uploaded tables with the ledger.
type Importer interface {
	ReplaceAll(ctx context.Context, table importer.Table) (importer.ReplaceReport, error)
	Merge(ctx context.Context, table importer.Table) (importer.MergeReport, error)
}

// Counter reports the ledger size.
type Counter interface {
	Count() int
}

// Dispatcher turns inbound chat text into a reply.
type Dispatcher interface {
	HandleMessage(ctx context.Context, sender, text string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	sales       SalesProcessor
	reporting   ReportingAdapter
	importer    Importer
	ledger      Counter
	repo        repo.Repository
	importRange string
	sessions    *SessionManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(salesSvc SalesProcessor, reportingSvc ReportingAdapter, imp Importer, ledger Counter, repository repo.Repository, importRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sales:       salesSvc,
		reporting:   reportingSvc,
		importer:    imp,
		ledger:      ledger,
		repo:        repository,
		importRange: importRange,
		sessions:    NewSessionManager(pendingImportTTL),
		logger:      logger,
		now:         time.Now,
	}
}

// HandleMessage routes a message: pending import confirmations first, then
// keyword commands, then sales lines.
func (s *Service) HandleMessage(ctx context.Context, sender, text string) (string, error) {
	now := s.now()

	if pending, ok := s.sessions.Pending(sender, now); ok {
		if reply, handled, err := s.confirmImport(ctx, sender, pending, text); handled {
			return reply, err
		}
	}

	cmd := models.ParseCommand(text)
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStart:
		return fmt.Sprintf("Medicine Inventory Bot\nMedicines in database: %d\n\n%s", s.ledger.Count(), helpText), nil
	case models.CommandHelp:
		return helpText, nil
	case models.CommandInventory:
		return s.reporting.InventorySummary(), nil
	case models.CommandLowStock:
		return s.reporting.LowStockSummary(), nil
	case models.CommandToday:
		return s.reporting.TodaySummary(ctx, now)
	case models.CommandReport:
		return reporting.FormatDailyReport(s.reporting.BuildDailyReport(ctx, now)), nil
	case models.CommandUpload:
		return s.stageImport(ctx, sender, cmd, now)
	case models.CommandBuy:
		body := strings.Join(cmd.Args, " ")
		if cmd.Body != "" {
			body += "\n" + cmd.Body
		}
		return s.applySales(ctx, body, models.DirectionBought)
	}

	if models.IsSalesMessage(text) {
		return s.applySales(ctx, text, models.DirectionSold)
	}
	return "", ErrUnsupportedCommand
}

func (s *Service) applySales(ctx context.Context, text string, direction models.Direction) (string, error) {
	result, err := s.sales.ProcessMessage(ctx, text, direction)
	if errors.Is(err, sales.ErrNoSaleLines) {
		return "No valid lines found. Use: <medicine> <qty> <price>", nil
	}
	reply := FormatBatch(result)
	if err != nil {
		return reply, fmt.Errorf("process %s batch: %w", direction, err)
	}
	return reply, nil
}

func (s *Service) stageImport(ctx context.Context, sender string, cmd models.Command, now time.Time) (string, error) {
	if s.repo == nil {
		return "Spreadsheet import is not configured.", nil
	}

	source := s.importRange
	if len(cmd.Args) > 0 {
		source = cmd.Args[0]
	}

	values, err := s.repo.ReadRange(ctx, source)
	if err != nil {
		return "", fmt.Errorf("read import range: %w", err)
	}
	header, rows := repo.ToTable(values)
	if !importer.MapColumns(header, importer.DefaultAliases).Has(importer.FieldName) {
		return fmt.Sprintf("Cannot import %s: required column 'medicine_name' or 'name' not found.", source), nil
	}

	s.sessions.SetPending(sender, PendingImport{Source: source, Table: importer.Table{Header: header, Rows: rows}, CreatedAt: now})
	return fmt.Sprintf("Found %d rows in %s.\nReply 'add' to add this stock to existing medicines, 'replace' to replace the whole inventory, or 'cancel'.", len(rows), source), nil
}

func (s *Service) confirmImport(ctx context.Context, sender string, pending PendingImport, text string) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "add", "yes", "merge", "restock_yes":
		s.sessions.Clear(sender)
		report, err := s.importer.Merge(ctx, pending.Table)
		if err != nil {
			return "", true, err
		}
		return FormatMergeReport(report), true, nil
	case "replace", "replace all", "restock_no":
		s.sessions.Clear(sender)
		report, err := s.importer.ReplaceAll(ctx, pending.Table)
		if err != nil {
			return "", true, err
		}
		return FormatReplaceReport(report), true, nil
	case "cancel", "no", "restock_cancel":
		s.sessions.Clear(sender)
		return "Import cancelled.", true, nil
	default:
		return "", false, nil
	}
}

// FormatBatch renders the outcome of a sales batch.
func FormatBatch(result sales.BatchResult) string {
	var b strings.Builder
	verb := "Sold"
	if result.Direction == models.DirectionBought {
		verb = "Bought"
	}

	for i, l := range result.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		switch l.Outcome {
		case sales.OutcomeApplied:
			fmt.Fprintf(&b, "%s %d x %s @ %s, remaining %d", verb, l.Line.Quantity, l.Record.Name, l.Line.UnitPrice.StringFixed(2), l.Record.Stock)
			if l.Status.NeedsAttention() {
				fmt.Fprintf(&b, " [%s]", strings.ToUpper(string(l.Status)))
			}
		case sales.OutcomeNotFound:
			fmt.Fprintf(&b, "Not found: %s", l.Line.Query)
		case sales.OutcomeInsufficient:
			fmt.Fprintf(&b, "Insufficient stock for %s: requested %d, available %d", l.Record.Name, l.Line.Quantity, l.Record.Stock)
		case sales.OutcomeRejected:
			fmt.Fprintf(&b, "Rejected quantity %d for %s", l.Line.Quantity, l.Record.Name)
		default:
			fmt.Fprintf(&b, "Failed: %s", l.Line.Query)
		}
	}

	if result.Applied() > 0 {
		fmt.Fprintf(&b, "\nTotal: %s", result.Total.StringFixed(2))
	}
	return b.String()
}

// FormatReplaceReport renders a replace-all import result.
func FormatReplaceReport(report importer.ReplaceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventory replaced: %d medicines imported.", report.Imported)
	writeRowErrors(&b, report.Errors)
	return b.String()
}

// FormatMergeReport renders a merge/restock import result.
func FormatMergeReport(report importer.MergeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock update complete.\nUpdated: %d\nNew: %d", report.Updated, report.Created)
	for i, d := range report.Details {
		if i == maxDetailLines {
			fmt.Fprintf(&b, "\n... and %d more", len(report.Details)-maxDetailLines)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %d -> %d (+%d) %s", d.Name, d.OldStock, d.NewStock, d.Added, d.Status)
	}
	writeRowErrors(&b, report.Errors)
	return b.String()
}

func writeRowErrors(b *strings.Builder, rowErrors []importer.RowError) {
	if len(rowErrors) == 0 {
		return
	}
	fmt.Fprintf(b, "\nErrors: %d", len(rowErrors))
	for i, e := range rowErrors {
		if i == maxErrorLines {
			break
		}
		fmt.Fprintf(b, "\n- %s", e.Error())
	}
}
