package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cadencelab/cadence/internal/domain/model"
)

// MemoryStore is an in-memory Store backed by maps. It is the default
// when no database path is configured, and the store used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.RecordingSession
	analyses map[string]model.AnalysisRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.RecordingSession),
		analyses: make(map[string]model.AnalysisRecord),
	}
}

// CreateSession inserts a new session.
func (m *MemoryStore) CreateSession(_ context.Context, s model.RecordingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	m.sessions[s.ID] = s
	return nil
}

// GetSession returns the session with the given id.
func (m *MemoryStore) GetSession(_ context.Context, id string) (model.RecordingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.RecordingSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// UpdateSession applies a partial update to an existing session.
func (m *MemoryStore) UpdateSession(_ context.Context, id string, patch model.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	patch.Apply(&s)
	m.sessions[id] = s
	return nil
}

// SaveAnalysis stores the analysis record for a session.
func (m *MemoryStore) SaveAnalysis(_ context.Context, rec model.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[rec.SessionID] = rec
	return nil
}

// GetAnalysis returns the analysis record for a session.
func (m *MemoryStore) GetAnalysis(_ context.Context, sessionID string) (model.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.analyses[sessionID]
	if !ok {
		return model.AnalysisRecord{}, fmt.Errorf("analysis %s: %w", sessionID, ErrNotFound)
	}
	return rec, nil
}

// ListAnalyses returns all analysis records for an owner, oldest first.
func (m *MemoryStore) ListAnalyses(_ context.Context, ownerID string) ([]model.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AnalysisRecord, 0)
	for _, rec := range m.analyses {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AnalyzedAt.Before(out[j].AnalyzedAt)
	})
	return out, nil
}

// CountSessions returns the number of sessions tracked.
func (m *MemoryStore) CountSessions(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
