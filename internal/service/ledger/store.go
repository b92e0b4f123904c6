package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
)

// SnapshotStore persists and restores the full ledger in one piece.
type SnapshotStore interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
}

// AdjustResult describes a successful stock adjustment.
type AdjustResult struct {
	Record models.MedicineRecord `json:"record"`
	Score  int                   `json:"score"`
	Status models.StockStatus    `json:"status"`
}

// Store is the authoritative in-memory ledger. Every mutation runs under one write
// lock, is applied to a copy, persisted, and only then published.
type Store struct {
	mu         sync.RWMutex
	records    []models.MedicineRecord
	snapshots  SnapshotStore
	thresholds models.Thresholds
	logger     *zap.Logger
	now        func() time.Time
}

// NewStore wires a ledger over the given snapshot store. Call Load before use.
func NewStore(snapshots SnapshotStore, thresholds models.Thresholds, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		snapshots:  snapshots,
		thresholds: thresholds,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Load replaces the in-memory state with the durable snapshot. A missing or
// unreadable snapshot leaves the ledger empty and is not reported as an error.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			s.logger.Info("no ledger snapshot found, starting empty")
		} else {
			s.logger.Warn("ledger snapshot unreadable, starting empty", zap.Error(err))
		}
		return
	}

	if err := validateRecords(snapshot.Medicines); err != nil {
		s.logger.Warn("ledger snapshot rejected, starting empty", zap.Error(err))
		return
	}

	for i := range snapshot.Medicines {
		if snapshot.Medicines[i].SearchName == "" {
			snapshot.Medicines[i].SearchName = models.NormalizeName(snapshot.Medicines[i].Name)
		}
	}

	s.records = snapshot.Medicines
	s.logger.Info("ledger loaded", zap.Int("records", len(s.records)), zap.Time("snapshot_at", snapshot.UpdatedAt))
}

// Save writes the current record set to the snapshot store.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.records)
}

// Adjust moves the stock of the record with the given id. A sale larger than the
// available stock fails with ErrInsufficientStock and changes nothing.
func (s *Store) Adjust(ctx context.Context, id, quantity int, direction models.Direction) (models.MedicineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.MedicineRecord{}, fmt.Errorf("adjust id %d: %w", id, ErrRecordNotFound)
	}
	return s.adjustAt(ctx, idx, quantity, direction)
}

// AdjustByQuery resolves query and adjusts the matched record without releasing
// the lock in between.
func (s *Store) AdjustByQuery(ctx context.Context, query string, quantity int, direction models.Direction) (AdjustResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, score := Resolve(s.records, query)
	if idx < 0 {
		return AdjustResult{}, fmt.Errorf("resolve %q: %w", query, ErrNoMatch)
	}

	record, err := s.adjustAt(ctx, idx, quantity, direction)
	if err != nil {
		return AdjustResult{Record: s.records[idx], Score: score, Status: s.thresholds.Classify(s.records[idx])}, err
	}
	return AdjustResult{Record: record, Score: score, Status: s.thresholds.Classify(record)}, nil
}

func (s *Store) adjustAt(ctx context.Context, idx, quantity int, direction models.Direction) (models.MedicineRecord, error) {
	if quantity <= 0 {
		return models.MedicineRecord{}, ErrInvalidQuantity
	}

	record := s.records[idx]
	switch direction {
	case models.DirectionSold:
		if quantity > record.Stock {
			return models.MedicineRecord{}, fmt.Errorf("sell %d of %q with %d in stock: %w", quantity, record.Name, record.Stock, ErrInsufficientStock)
		}
		record.Stock -= quantity
	case models.DirectionBought:
		if quantity > math.MaxInt-record.Stock {
			return models.MedicineRecord{}, fmt.Errorf("buy %d of %q with %d in stock: %w", quantity, record.Name, record.Stock, ErrStockOverflow)
		}
		record.Stock += quantity
	default:
		return models.MedicineRecord{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	record.UpdatedAt = s.now()

	next := s.cloneRecords()
	next[idx] = record
	if err := validateRecords(next[idx : idx+1]); err != nil {
		return models.MedicineRecord{}, fmt.Errorf("adjust ledger: %w", err)
	}
	if err := s.commit(ctx, next); err != nil {
		return models.MedicineRecord{}, err
	}

	s.logger.Debug("stock adjusted",
		zap.Int("id", record.ID),
		zap.String("direction", string(direction)),
		zap.Int("quantity", quantity),
		zap.Int("stock", record.Stock))
	return record, nil
}

// Mutate hands fn a private copy of the records under the write lock. The slice fn
// returns becomes the new ledger once it validates and persists.
func (s *Store) Mutate(ctx context.Context, fn func(records []models.MedicineRecord, now time.Time) ([]models.MedicineRecord, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cloneRecords(), s.now())
	if err != nil {
		return err
	}
	if err := validateRecords(next); err != nil {
		return fmt.Errorf("mutate ledger: %w", err)
	}
	return s.commit(ctx, next)
}

// Resolve maps a free-text query to the best matching record.
func (s *Store) Resolve(query string) (Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, score := Resolve(s.records, query)
	if idx < 0 {
		return Match{}, false
	}
	return Match{Record: s.records[idx], Score: score}, true
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (models.MedicineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.MedicineRecord{}, fmt.Errorf("get id %d: %w", id, ErrRecordNotFound)
	}
	return s.records[idx], nil
}

// AllRecords returns every record in insertion order.
func (s *Store) AllRecords() []models.MedicineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneRecords()
}

// LowStock returns records at or below minStock*lowMultiplier, lowest stock first.
func (s *Store) LowStock() []models.MedicineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var low []models.MedicineRecord
	for _, r := range s.records {
		level := models.WarningLevel(r.MinStock, s.thresholds.LowMultiplier)
		if decimal.NewFromInt(int64(r.Stock)).LessThanOrEqual(level) {
			low = append(low, r)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low
}

// CriticalStock returns records at or below the critical threshold.
func (s *Store) CriticalStock() []models.MedicineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var critical []models.MedicineRecord
	for _, r := range s.records {
		if r.Stock <= s.thresholds.Critical {
			critical = append(critical, r)
		}
	}
	return critical
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Classify returns the stock status of a record under the configured thresholds.
func (s *Store) Classify(record models.MedicineRecord) models.StockStatus {
	return s.thresholds.Classify(record)
}

// Thresholds exposes the configured classification thresholds.
func (s *Store) Thresholds() models.Thresholds {
	return s.thresholds
}

func (s *Store) commit(ctx context.Context, next []models.MedicineRecord) error {
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *Store) persist(ctx context.Context, records []models.MedicineRecord) error {
	snapshot := models.Snapshot{UpdatedAt: s.now(), Medicines: records}
	if snapshot.Medicines == nil {
		snapshot.Medicines = []models.MedicineRecord{}
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		s.logger.Error("ledger snapshot save failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Store) indexOf(id int) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) cloneRecords() []models.MedicineRecord {
	out := make([]models.MedicineRecord, len(s.records))
	copy(out, s.records)
	return out
}

func validateRecords(records []models.MedicineRecord) error {
	seen := make(map[int]struct{}, len(records))
	for _, r := range records {
		switch {
		case r.ID <= 0:
			return fmt.Errorf("record %q has invalid id %d", r.Name, r.ID)
		case r.Name == "":
			return fmt.Errorf("record %d has empty name", r.ID)
		case r.Stock < 0:
			return fmt.Errorf("record %d has negative stock %d", r.ID, r.Stock)
		case r.Price.IsNegative():
			return fmt.Errorf("record %d has negative price", r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate record id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
