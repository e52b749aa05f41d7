package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dockagent/internal/ir"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout has a fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteStore struct {
	db *sql.DB
}

var _ HistoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			repository TEXT,
			revision TEXT,
			dirty INTEGER,
			action TEXT,
			confidence TEXT,
			confidence_source TEXT,
			status TEXT,
			reasons JSON,
			snapshot JSON,
			dockerfile TEXT,
			review_passed INTEGER,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_repo ON sessions(repository, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, rec SessionRecord) error {
	if rec.ID == "" {
		return errors.New("session id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	reasons, err := json.Marshal(nonNil(rec.Reasons))
	if err != nil {
		return err
	}
	var snapshot []byte
	if rec.Snapshot != nil {
		if snapshot, err = json.Marshal(rec.Snapshot); err != nil {
			return err
		}
	}
	var reviewPassed sql.NullInt64
	if rec.ReviewPassed != nil {
		reviewPassed = sql.NullInt64{Int64: boolToInt(*rec.ReviewPassed), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, repository, revision, dirty, action, confidence, confidence_source, status, reasons, snapshot, dockerfile, review_passed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			repository=excluded.repository,
			revision=excluded.revision,
			dirty=excluded.dirty,
			action=excluded.action,
			confidence=excluded.confidence,
			confidence_source=excluded.confidence_source,
			status=excluded.status,
			reasons=excluded.reasons,
			snapshot=excluded.snapshot,
			dockerfile=excluded.dockerfile,
			review_passed=excluded.review_passed
	`, rec.ID, rec.Repository, rec.Revision, boolToInt(rec.Dirty), rec.Action, rec.Confidence,
		rec.ConfidenceSource, rec.Status, string(reasons), nullString(snapshot), rec.Dockerfile,
		reviewPassed, rec.CreatedAt.UTC().Format(timeLayout))

	return err
}

const selectSession = `
	SELECT id, repository, revision, dirty, action, confidence, confidence_source, status, reasons, snapshot, dockerfile, review_passed, created_at
	FROM sessions`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectSession+` WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, repository string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := selectSession
	args := []any{}
	if repository != "" {
		query += ` WHERE repository = ?`
		args = append(args, repository)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var (
		rec                SessionRecord
		dirty              int64
		reasons, createdAt string
		snapshot           sql.NullString
		reviewPassed       sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Repository, &rec.Revision, &dirty, &rec.Action, &rec.Confidence,
		&rec.ConfidenceSource, &rec.Status, &reasons, &snapshot, &rec.Dockerfile, &reviewPassed, &createdAt)
	if err != nil {
		return nil, err
	}

	rec.Dirty = dirty != 0
	if err := json.Unmarshal([]byte(reasons), &rec.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons of %s: %w", rec.ID, err)
	}
	if snapshot.Valid {
		var snap ir.Snapshot
		if err := json.Unmarshal([]byte(snapshot.String), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot of %s: %w", rec.ID, err)
		}
		rec.Snapshot = &snap
	}
	if reviewPassed.Valid {
		passed := reviewPassed.Int64 != 0
		rec.ReviewPassed = &passed
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to decode created_at of %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
