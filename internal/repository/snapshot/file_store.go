package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/ledger"
)

// FileStore keeps the ledger snapshot in a single JSON file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates the parent directory of path and returns a store for it.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("snapshot path must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the snapshot file.
func (s *FileStore) Load(_ context.Context) (models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Snapshot{}, ledger.ErrSnapshotNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	return Decode(data)
}

// Save writes the snapshot to a temp file in the same directory and renames it
// over the previous one, so readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, snapshot models.Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".inventory-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}

	s.logger.Debug("snapshot written", zap.String("path", s.path), zap.Int("records", len(snapshot.Medicines)))
	return nil
}

// Encode renders a snapshot in its durable JSON form.
func Encode(snapshot models.Snapshot) ([]byte, error) {
	if snapshot.Medicines == nil {
		snapshot.Medicines = []models.MedicineRecord{}
	}
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a durable JSON snapshot.
func Decode(data []byte) (models.Snapshot, error) {
	var snapshot models.Snapshot
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot, errors.New("decode snapshot: empty payload")
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}
