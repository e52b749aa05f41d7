package storage

import (
	"context"
	"errors"
	"time"

	"dockagent/internal/ir"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// SessionRecord is the audit entry written once a session finishes.
type SessionRecord struct {
	ID               string
	Repository       string
	Revision         string
	Dirty            bool
	Action           string
	Confidence       string
	ConfidenceSource string
	Status           string
	Reasons          []string
	Snapshot         *ir.Snapshot
	Dockerfile       string
	ReviewPassed     *bool
	CreatedAt        time.Time
}

// HistoryStore persists finished sessions.
type HistoryStore interface {
	// SaveSession upserts a session record.
	SaveSession(ctx context.Context, rec SessionRecord) error

	// GetSession retrieves a session by its ID.
	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	// ListSessions returns the newest sessions for a repository first.
	// An empty repository lists every session.
	ListSessions(ctx context.Context, repository string, limit int) ([]SessionRecord, error)

	Close() error
}
