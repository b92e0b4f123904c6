package commands

import (
	"sync"
	"time"

	"github.com/mamadbah2/medstock/internal/service/importer"
)

// PendingImport is an uploaded table waiting for the operator to choose a mode.
type PendingImport struct {
	Source    string
	Table     importer.Table
	CreatedAt time.Time
}

// SessionManager tracks pending imports per user.
type SessionManager struct {
	pending map[string]PendingImport
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewSessionManager creates a session manager whose entries expire after ttl.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		pending: make(map[string]PendingImport),
		ttl:     ttl,
	}
}

// Pending returns the user's pending import if it has not expired.
func (sm *SessionManager) Pending(userID string, now time.Time) (PendingImport, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	p, ok := sm.pending[userID]
	if !ok || (sm.ttl > 0 && now.Sub(p.CreatedAt) > sm.ttl) {
		return PendingImport{}, false
	}
	return p, true
}

// SetPending stores a pending import for the user, replacing any previous one.
func (sm *SessionManager) SetPending(userID string, p PendingImport) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.pending[userID] = p
}

// Clear removes a user's pending import.
func (sm *SessionManager) Clear(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.pending, userID)
}
