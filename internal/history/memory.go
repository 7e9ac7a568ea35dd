package history

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

// MemoryStore is the history backend used when no database is configured.
// Records are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.HistoryRecord
	byID     map[string]string // query id -> session id
}

// NewMemoryStore returns an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]domain.HistoryRecord),
		byID:     make(map[string]string),
	}
}

func (m *MemoryStore) Append(_ context.Context, rec domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.SessionID] = append(m.sessions[rec.SessionID], rec)
	m.byID[rec.ID] = rec.SessionID
	return nil
}

func (m *MemoryStore) SessionHistory(_ context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error) {
	m.mu.RLock()
	recs := append([]domain.HistoryRecord(nil), m.sessions[sessionID]...)
	m.mu.RUnlock()

	newestFirst(recs)
	if limit = NormalizeLimit(limit); len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *MemoryStore) Get(_ context.Context, queryID string) (domain.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sid, ok := m.byID[queryID]
	if !ok {
		return domain.HistoryRecord{}, ErrNotFound
	}
	for _, r := range m.sessions[sid] {
		if r.ID == queryID {
			return r, nil
		}
	}
	return domain.HistoryRecord{}, ErrNotFound
}

func (m *MemoryStore) DeleteSession(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.sessions[sessionID]
	for _, r := range recs {
		delete(m.byID, r.ID)
	}
	delete(m.sessions, sessionID)
	return len(recs), nil
}

func (m *MemoryStore) Stats(_ context.Context, sessionID string) (SessionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summarize(sessionID, m.sessions[sessionID]), nil
}

// Prune drops records created before the cutoff and returns how many went.
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sid, recs := range m.sessions {
		kept := recs[:0]
		for _, r := range recs {
			if r.CreatedAt.Before(before) {
				delete(m.byID, r.ID)
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(m.sessions, sid)
			continue
		}
		m.sessions[sid] = kept
	}
	return removed, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }
