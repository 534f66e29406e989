package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cadencelab/cadence/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	prompt_id    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	blob_key     TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS analyses (
	session_id  TEXT PRIMARY KEY REFERENCES sessions(id),
	owner_id    TEXT NOT NULL,
	percentages TEXT NOT NULL,
	total_units INTEGER NOT NULL,
	segments    TEXT,
	raw         BLOB,
	waveform    TEXT,
	analyzed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
CREATE INDEX IF NOT EXISTS idx_analyses_owner ON analyses(owner_id, analyzed_at);
`

// SQLiteStore is a Store persisted in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent lifecycle updates.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess model.RecordingSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, prompt_id, status, created_at, completed_at, blob_key, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.OwnerID, sess.PromptID, string(sess.Status),
		sess.CreatedAt, sess.CompletedAt, sess.BlobKey, sess.Duration.Milliseconds())
	if err != nil {
		var exists bool
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) > 0 FROM sessions WHERE id = ?`, sess.ID)
		if scanErr := row.Scan(&exists); scanErr == nil && exists {
			return fmt.Errorf("session %s: %w", sess.ID, ErrConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (model.RecordingSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, prompt_id, status, created_at, completed_at, blob_key, duration_ms
		 FROM sessions WHERE id = ?`, id)

	var sess model.RecordingSession
	var status string
	var completedAt sql.NullTime
	var durationMS int64
	err := row.Scan(&sess.ID, &sess.OwnerID, &sess.PromptID, &status,
		&sess.CreatedAt, &completedAt, &sess.BlobKey, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RecordingSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.RecordingSession{}, fmt.Errorf("scan session: %w", err)
	}

	sess.Status = model.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	sess.Duration = time.Duration(durationMS) * time.Millisecond
	return sess, nil
}

// UpdateSession applies a partial update to an existing session.
// The read-modify-write runs in one transaction; with a single
// connection it is serialized against other writers.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, patch model.SessionPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRowContext(ctx,
		`SELECT id, owner_id, prompt_id, status, created_at, completed_at, blob_key, duration_ms
		 FROM sessions WHERE id = ?`, id)

	var sess model.RecordingSession
	var status string
	var completedAt sql.NullTime
	var durationMS int64
	err = row.Scan(&sess.ID, &sess.OwnerID, &sess.PromptID, &status,
		&sess.CreatedAt, &completedAt, &sess.BlobKey, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("scan session: %w", err)
	}
	sess.Status = model.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	sess.Duration = time.Duration(durationMS) * time.Millisecond

	patch.Apply(&sess)

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = ?, blob_key = ?, duration_ms = ? WHERE id = ?`,
		string(sess.Status), sess.CompletedAt, sess.BlobKey, sess.Duration.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return tx.Commit()
}

// SaveAnalysis stores the analysis record for a session.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error {
	percentages, err := json.Marshal(rec.Percentages)
	if err != nil {
		return fmt.Errorf("encode percentages: %w", err)
	}
	segments, err := json.Marshal(rec.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	waveform, err := json.Marshal(rec.Waveform)
	if err != nil {
		return fmt.Errorf("encode waveform: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (session_id, owner_id, percentages, total_units, segments, raw, waveform, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		 	percentages = excluded.percentages,
		 	total_units = excluded.total_units,
		 	segments    = excluded.segments,
		 	raw         = excluded.raw,
		 	waveform    = excluded.waveform,
		 	analyzed_at = excluded.analyzed_at`,
		rec.SessionID, rec.OwnerID, string(percentages), rec.TotalUnits,
		string(segments), rec.Raw, string(waveform), rec.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns the analysis record for a session.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, sessionID string) (model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, owner_id, percentages, total_units, segments, raw, waveform, analyzed_at
		 FROM analyses WHERE session_id = ?`, sessionID)

	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisRecord{}, fmt.Errorf("analysis %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}

// ListAnalyses returns all analysis records for an owner, oldest first.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, ownerID string) ([]model.AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, owner_id, percentages, total_units, segments, raw, waveform, analyzed_at
		 FROM analyses WHERE owner_id = ? ORDER BY analyzed_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var percentages, segments, waveform sql.NullString
	err := row.Scan(&rec.SessionID, &rec.OwnerID, &percentages, &rec.TotalUnits,
		&segments, &rec.Raw, &waveform, &rec.AnalyzedAt)
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	if percentages.Valid {
		if err := json.Unmarshal([]byte(percentages.String), &rec.Percentages); err != nil {
			return model.AnalysisRecord{}, fmt.Errorf("decode percentages: %w", err)
		}
	}
	if segments.Valid {
		if err := json.Unmarshal([]byte(segments.String), &rec.Segments); err != nil {
			return model.AnalysisRecord{}, fmt.Errorf("decode segments: %w", err)
		}
	}
	if waveform.Valid {
		if err := json.Unmarshal([]byte(waveform.String), &rec.Waveform); err != nil {
			return model.AnalysisRecord{}, fmt.Errorf("decode waveform: %w", err)
		}
	}
	return rec, nil
}

// CountSessions returns the number of sessions tracked.
func (s *SQLiteStore) CountSessions(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
