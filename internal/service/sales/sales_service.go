package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/metrics"
	repo "github.com/mamadbah2/medstock/internal/repository/sheets"
	"github.com/mamadbah2/medstock/internal/service/ledger"
)

// ErrNoSaleLines indicates a message without a single parseable sale line.
var ErrNoSaleLines = errors.New("no sale lines found")

// TimestampLayout is the format of the timestamp column of the transaction log.
const TimestampLayout = "2006-01-02 15:04:05"

// Ledger is the subset of the ledger store the sales pipeline needs.
type Ledger interface {
	AdjustByQuery(ctx context.Context, query string, quantity int, direction models.Direction) (ledger.AdjustResult, error)
}

// Outcome is the result category of one sale line.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeInsufficient Outcome = "insufficient_stock"
	OutcomeRejected     Outcome = "rejected"
	OutcomeFailed       Outcome = "failed"
)

// LineResult is what happened to one sale line.
type LineResult struct {
	Line    models.SaleLineRequest `json:"line"`
	Outcome Outcome                `json:"outcome"`
	Record  models.MedicineRecord  `json:"record"`
	Score   int                    `json:"score"`
	Status  models.StockStatus     `json:"status,omitempty"`
	Err     error                  `json:"-"`
}

// BatchResult aggregates a processed sales message.
type BatchResult struct {
	Direction models.Direction `json:"direction"`
	Lines     []LineResult     `json:"lines"`
	Total     decimal.Decimal  `json:"total"`
}

// Applied counts lines that changed stock.
func (b BatchResult) Applied() int {
	n := 0
	for _, l := range b.Lines {
		if l.Outcome == OutcomeApplied {
			n++
		}
	}
	return n
}

// Alerts returns the applied lines whose record is now low or critical.
func (b BatchResult) Alerts() []LineResult {
	var out []LineResult
	for _, l := range b.Lines {
		if l.Outcome == OutcomeApplied && l.Status.NeedsAttention() {
			out = append(out, l)
		}
	}
	return out
}

// Service turns sales messages into ledger adjustments and transaction log rows.
type Service struct {
	ledger            Ledger
	repo              repo.Repository
	transactionsRange string
	metrics           *metrics.Metrics
	logger            *zap.Logger
	now               func() time.Time
	newID             func() uuid.UUID
}

// NewService constructs the sales pipeline. repo may be nil to disable the transaction
// log; timestamps are written in loc.
func NewService(l Ledger, repository repo.Repository, transactionsRange string, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		ledger:            l,
		repo:              repository,
		transactionsRange: transactionsRange,
		metrics:           m,
		logger:            logger,
		now:               func() time.Time { return time.Now().In(loc) },
		newID:             uuid.New,
	}
}

// ProcessMessage parses every line of text and applies it in the given direction.
func (s *Service) ProcessMessage(ctx context.Context, text string, direction models.Direction) (BatchResult, error) {
	lines := models.ParseSaleLines(text)
	if len(lines) == 0 {
		return BatchResult{Direction: direction}, ErrNoSaleLines
	}
	return s.Process(ctx, lines, direction)
}

// Process applies each line in order. Unknown medicines and short stock are
// reported per line; a persistence failure stops the batch and is returned.
func (s *Service) Process(ctx context.Context, lines []models.SaleLineRequest, direction models.Direction) (BatchResult, error) {
	result := BatchResult{Direction: direction, Total: decimal.Zero}

	var batchErr error
	for _, line := range lines {
		lr := s.applyLine(ctx, line, direction)
		result.Lines = append(result.Lines, lr)
		s.metrics.ObserveSaleLine(string(direction), string(lr.Outcome))

		if lr.Outcome == OutcomeApplied {
			result.Total = result.Total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			continue
		}
		if lr.Outcome == OutcomeFailed {
			batchErr = lr.Err
			break
		}
	}

	s.logTransactions(ctx, result)

	s.logger.Info("sales batch processed",
		zap.String("direction", string(direction)),
		zap.Int("lines", len(lines)),
		zap.Int("applied", result.Applied()),
		zap.String("total", result.Total.StringFixed(2)))

	return result, batchErr
}

func (s *Service) applyLine(ctx context.Context, line models.SaleLineRequest, direction models.Direction) LineResult {
	lr := LineResult{Line: line}

	adjusted, err := s.ledger.AdjustByQuery(ctx, line.Query, line.Quantity, direction)
	lr.Record, lr.Score, lr.Status, lr.Err = adjusted.Record, adjusted.Score, adjusted.Status, err

	switch {
	case err == nil:
		lr.Outcome = OutcomeApplied
	case errors.Is(err, ledger.ErrNoMatch):
		lr.Outcome = OutcomeNotFound
	case errors.Is(err, ledger.ErrInsufficientStock):
		lr.Outcome = OutcomeInsufficient
	case errors.Is(err, ledger.ErrStockOverflow), errors.Is(err, ledger.ErrInvalidQuantity):
		lr.Outcome = OutcomeRejected
	default:
		lr.Outcome = OutcomeFailed
		s.logger.Error("sale line failed", zap.String("query", line.Query), zap.Error(err))
	}
	return lr
}

// logTransactions appends applied lines to the transaction log. The ledger is
// already persisted at this point, so failures are only logged.
func (s *Service) logTransactions(ctx context.Context, result BatchResult) {
	if s.repo == nil || s.transactionsRange == "" {
		return
	}

	now := s.now()
	var rows [][]interface{}
	for _, l := range result.Lines {
		if l.Outcome != OutcomeApplied {
			continue
		}
		tx := models.Transaction{
			ID:             s.newID(),
			Timestamp:      now,
			MedicineName:   l.Record.Name,
			Quantity:       l.Line.Quantity,
			Price:          l.Line.UnitPrice,
			Type:           result.Direction,
			RemainingStock: l.Record.Stock,
		}
		rows = append(rows, TransactionRow(tx))
	}
	if len(rows) == 0 {
		return
	}

	if err := s.repo.AppendRows(ctx, s.transactionsRange, rows); err != nil {
		s.logger.Error("failed to append transaction log", zap.Int("rows", len(rows)), zap.Error(err))
	}
}

// TransactionRow renders a transaction as a transaction log row.
func TransactionRow(tx models.Transaction) []interface{} {
	return []interface{}{
		tx.ID.String(),
		tx.Timestamp.Format(TimestampLayout),
		tx.MedicineName,
		tx.Quantity,
		tx.Price.String(),
		string(tx.Type),
		tx.RemainingStock,
	}
}

// ParseTransactionRow reads a transaction log row back. Header or malformed rows fail.
func ParseTransactionRow(row []interface{}, loc *time.Location) (models.Transaction, error) {
	if len(row) < 7 {
		return models.Transaction{}, fmt.Errorf("transaction row has %d columns", len(row))
	}

	id, err := uuid.Parse(fmt.Sprint(row[0]))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, fmt.Sprint(row[1]), loc)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse transaction timestamp: %w", err)
	}
	qty, err := parseInt(row[3])
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse transaction quantity: %w", err)
	}
	price, err := decimal.NewFromString(fmt.Sprint(row[4]))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse transaction price: %w", err)
	}
	remaining, err := parseInt(row[6])
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse remaining stock: %w", err)
	}

	return models.Transaction{
		ID:             id,
		Timestamp:      ts,
		MedicineName:   fmt.Sprint(row[2]),
		Quantity:       qty,
		Price:          price,
		Type:           models.Direction(fmt.Sprint(row[5])),
		RemainingStock: remaining,
	}, nil
}

func parseInt(value interface{}) (int, error) {
	d, err := decimal.NewFromString(fmt.Sprint(value))
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}
