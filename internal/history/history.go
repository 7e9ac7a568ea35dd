// Package history keeps per-session query history: an in-memory store, a
// fan-out recorder for secondary sinks and a retention janitor.
package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

// DefaultLimit caps a session listing when the caller does not ask for one.
const DefaultLimit = 50

// ErrNotFound is returned when a query id is not in the history.
var ErrNotFound = errors.New("history record not found")

// Recorder accepts history records.
type Recorder interface {
	Append(ctx context.Context, rec domain.HistoryRecord) error
}

// Store is a queryable history backend.
type Store interface {
	Recorder
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error)
	Get(ctx context.Context, queryID string) (domain.HistoryRecord, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	Stats(ctx context.Context, sessionID string) (SessionStats, error)
	Prune(ctx context.Context, before time.Time) (int, error)
}

// SessionStats summarizes one session's history.
type SessionStats struct {
	SessionID  string         `json:"session_id"`
	Queries    int            `json:"total_queries"`
	Successful int            `json:"successful_queries"`
	FirstQuery *time.Time     `json:"first_query,omitempty"`
	LastQuery  *time.Time     `json:"last_query,omitempty"`
	Variables  map[string]int `json:"variables"`
	Operations map[string]int `json:"operations"`
}

// Summarize computes SessionStats from a session's records in any order.
func Summarize(sessionID string, recs []domain.HistoryRecord) SessionStats {
	st := SessionStats{
		SessionID:  sessionID,
		Variables:  map[string]int{},
		Operations: map[string]int{},
	}
	for _, r := range recs {
		st.Queries++
		if r.Success {
			st.Successful++
		}
		if r.Variable != "" && r.Variable != domain.VariableUnknown {
			st.Variables[string(r.Variable)]++
		}
		if r.Operation != "" {
			st.Operations[string(r.Operation)]++
		}
		at := r.CreatedAt
		if st.FirstQuery == nil || at.Before(*st.FirstQuery) {
			st.FirstQuery = &at
		}
		if st.LastQuery == nil || at.After(*st.LastQuery) {
			last := at
			st.LastQuery = &last
		}
	}
	return st
}

// NormalizeLimit maps non-positive limits to DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// newestFirst orders records by creation time descending, id as tie-break.
func newestFirst(recs []domain.HistoryRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
