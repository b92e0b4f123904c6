package importer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/metrics"
	"github.com/mamadbah2/medstock/internal/service/ledger"
)

// MinMergeScore is the lowest resolver confidence at which a merge row restocks an
// existing record instead of creating a new one.
const MinMergeScore = 60

// Mode selects how an upload is reconciled with the ledger.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeMerge   Mode = "merge"
)

// ParseMode maps user-facing words onto a Mode.
func ParseMode(value string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "replace", "replace_all", "replace-all":
		return ModeReplace, true
	case "merge", "add", "restock":
		return ModeMerge, true
	default:
		return "", false
	}
}

// Table is a header row plus data rows as read from a spreadsheet or CSV.
type Table struct {
	Header []string
	Rows   [][]string
}

// Ledger is the mutation boundary the reconciler writes through.
type Ledger interface {
	Mutate(ctx context.Context, fn func(records []models.MedicineRecord, now time.Time) ([]models.MedicineRecord, error)) error
}

// ReplaceReport summarizes a replace-all import.
type ReplaceReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"-"`
}

// DetailStatus tells whether a merge row restocked or created a record.
type DetailStatus string

const (
	DetailUpdated DetailStatus = "updated"
	DetailNew     DetailStatus = "new"
)

// RowDetail describes what one merge row did to the ledger.
type RowDetail struct {
	Row      int          `json:"row"`
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	OldStock int          `json:"old_stock"`
	NewStock int          `json:"new_stock"`
	Added    int          `json:"added"`
	Score    int          `json:"score"`
	Status   DetailStatus `json:"status"`
}

// MergeReport summarizes a merge/restock import.
type MergeReport struct {
	Updated int         `json:"updated"`
	Created int         `json:"created"`
	Errors  []RowError  `json:"-"`
	Details []RowDetail `json:"details"`
}

// Reconciler bulk-loads tables into the ledger.
type Reconciler struct {
	ledger          Ledger
	aliases         []FieldAliases
	defaultMinStock int
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewReconciler builds a reconciler using the default alias table.
func NewReconciler(l Ledger, defaultMinStock int, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		ledger:          l,
		aliases:         DefaultAliases,
		defaultMinStock: defaultMinStock,
		metrics:         m,
		logger:          logger,
	}
}

// ReplaceAll discards the ledger and rebuilds it from table. Record ids are the
// 1-based data row positions. The header is validated before anything changes.
func (r *Reconciler) ReplaceAll(ctx context.Context, table Table) (ReplaceReport, error) {
	columns, err := r.columns(table)
	if err != nil {
		return ReplaceReport{}, err
	}

	var report ReplaceReport
	err = r.ledger.Mutate(ctx, func(_ []models.MedicineRecord, now time.Time) ([]models.MedicineRecord, error) {
		report = ReplaceReport{}
		records := make([]models.MedicineRecord, 0, len(table.Rows))

		for i, row := range table.Rows {
			index := i + 1
			parsed, ok, rowErr := parseRow(columns, row, index)
			if rowErr != nil {
				report.Errors = append(report.Errors, *rowErr)
				continue
			}
			if !ok {
				continue
			}

			record, err := r.newRecord(index, parsed, now)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: index, Field: FieldName, Value: parsed.name, Err: err})
				continue
			}
			records = append(records, record)
			report.Imported++
		}
		return records, nil
	})
	if err != nil {
		return ReplaceReport{}, fmt.Errorf("replace import: %w", err)
	}

	r.metrics.ObserveImport(string(ModeReplace), report.Imported, len(report.Errors))
	r.logger.Info("replace import completed",
		zap.Int("rows", len(table.Rows)),
		zap.Int("imported", report.Imported),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

// Merge restocks matched records and creates the rest, keeping existing data.
// Stock values are added; min stock and price overwrite only when supplied.
func (r *Reconciler) Merge(ctx context.Context, table Table) (MergeReport, error) {
	columns, err := r.columns(table)
	if err != nil {
		return MergeReport{}, err
	}

	var report MergeReport
	err = r.ledger.Mutate(ctx, func(records []models.MedicineRecord, now time.Time) ([]models.MedicineRecord, error) {
		report = MergeReport{}

		for i, row := range table.Rows {
			index := i + 1
			parsed, ok, rowErr := parseRow(columns, row, index)
			if rowErr != nil {
				report.Errors = append(report.Errors, *rowErr)
				continue
			}
			if !ok {
				continue
			}

			if idx, score := ledger.Resolve(records, parsed.name); idx >= 0 && score >= MinMergeScore {
				record := &records[idx]
				if parsed.stock > math.MaxInt-record.Stock {
					report.Errors = append(report.Errors, RowError{Row: index, Field: FieldStock, Value: strconv.Itoa(parsed.stock), Err: fmt.Errorf("%w: stock would overflow", ErrInvalidNumber)})
					continue
				}
				detail := RowDetail{Row: index, ID: record.ID, Name: record.Name, OldStock: record.Stock, Added: parsed.stock, Score: score, Status: DetailUpdated}

				record.Stock += parsed.stock
				if parsed.hasMinStock {
					record.MinStock = parsed.minStock
				}
				if parsed.hasPrice {
					record.Price = parsed.price
				}
				record.UpdatedAt = now

				detail.NewStock = record.Stock
				report.Details = append(report.Details, detail)
				report.Updated++
				continue
			}

			record, err := r.newRecord(nextID(records), parsed, now)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: index, Field: FieldName, Value: parsed.name, Err: err})
				continue
			}
			records = append(records, record)
			report.Details = append(report.Details, RowDetail{
				Row:      index,
				ID:       record.ID,
				Name:     record.Name,
				NewStock: record.Stock,
				Added:    record.Stock,
				Status:   DetailNew,
			})
			report.Created++
		}
		return records, nil
	})
	if err != nil {
		return MergeReport{}, fmt.Errorf("merge import: %w", err)
	}

	r.metrics.ObserveImport(string(ModeMerge), report.Updated+report.Created, len(report.Errors))
	r.logger.Info("merge import completed",
		zap.Int("rows", len(table.Rows)),
		zap.Int("updated", report.Updated),
		zap.Int("created", report.Created),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

func (r *Reconciler) columns(table Table) (ColumnMap, error) {
	columns := MapColumns(table.Header, r.aliases)
	if !columns.Has(FieldName) {
		return nil, fmt.Errorf("%w: required column 'medicine_name' or 'name' not found", ErrValidation)
	}
	return columns, nil
}

func (r *Reconciler) newRecord(id int, parsed parsedRow, now time.Time) (models.MedicineRecord, error) {
	minStock := r.defaultMinStock
	if parsed.hasMinStock {
		minStock = parsed.minStock
	}
	price := decimal.Zero
	if parsed.hasPrice {
		price = parsed.price
	}
	return models.NewMedicineRecord(id, parsed.name, parsed.stock, minStock, price, now)
}

func nextID(records []models.MedicineRecord) int {
	highest := 0
	for _, r := range records {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}
