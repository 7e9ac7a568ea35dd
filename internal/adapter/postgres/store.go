// Package postgres persists session history in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
)

// Store implements history.Store on top of a query_history table.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and makes sure the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_history (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    query       TEXT NOT NULL,
    response    TEXT NOT NULL,
    variable    TEXT NOT NULL,
    operation   TEXT NOT NULL,
    success     BOOLEAN NOT NULL,
    data        JSONB,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS query_history_session_idx ON query_history (session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS query_history_created_idx ON query_history (created_at);
`

// EnsureSchema creates the history table and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertSQL = `
INSERT INTO query_history (id, session_id, user_id, query, response, variable, operation, success, data, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING`

func (s *Store) Append(ctx context.Context, rec domain.HistoryRecord) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, insertSQL,
		rec.ID, rec.SessionID, rec.UserID, rec.Query, rec.Response,
		string(rec.Variable), string(rec.Operation), rec.Success, data, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, user_id, query, response, variable, operation, success, data, created_at FROM query_history`

func (s *Store) SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx,
		selectColumns+` WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		sessionID, history.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (s *Store) Get(ctx context.Context, queryID string) (domain.HistoryRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, queryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.HistoryRecord{}, history.ErrNotFound
	}
	return rec, err
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM query_history WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Stats(ctx context.Context, sessionID string) (history.SessionStats, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE session_id = $1`, sessionID)
	if err != nil {
		return history.SessionStats{}, fmt.Errorf("query session stats: %w", err)
	}
	defer rows.Close()
	recs, err := collect(rows)
	if err != nil {
		return history.SessionStats{}, err
	}
	return history.Summarize(sessionID, recs), nil
}

func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM query_history WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func collect(rows pgx.Rows) ([]domain.HistoryRecord, error) {
	recs := make([]domain.HistoryRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecord(row pgx.Row) (domain.HistoryRecord, error) {
	var (
		rec       domain.HistoryRecord
		variable  string
		operation string
		data      []byte
	)
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.Query, &rec.Response,
		&variable, &operation, &rec.Success, &data, &rec.CreatedAt); err != nil {
		return domain.HistoryRecord{}, err
	}
	rec.Variable = domain.Variable(variable)
	rec.Operation = domain.Operation(operation)
	rec.CreatedAt = rec.CreatedAt.UTC()
	d, err := decodeData(data)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	rec.Data = d
	return rec, nil
}

func encodeData(d *domain.AnswerData) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode answer data: %w", err)
	}
	return b, nil
}

func decodeData(b []byte) (*domain.AnswerData, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var d domain.AnswerData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode answer data: %w", err)
	}
	return &d, nil
}
