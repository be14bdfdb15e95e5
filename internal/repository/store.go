// Package repository persists the session call journal.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// SessionRecord is the journal entry for a session. It holds no
// conversation content.
type SessionRecord struct {
	SessionID string
	UserID    string
	Subject   string
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Store defines the interface for the call journal.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error)
	CountCallsSince(ctx context.Context, kind domain.CallKind, sinceTs int64) (int, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
