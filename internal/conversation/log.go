// Package conversation holds the in-memory, append-only message log of a session.
package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/smartdoc/internal/domain"
)

// Log is an ordered, append-only sequence of messages. Messages are never
// edited, removed or reordered; Reset clears the whole log.
type Log struct {
	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
	newID    func() string
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDGenerator overrides the message ID source.
func WithIDGenerator(newID func() string) Option {
	return func(l *Log) { l.newID = newID }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		now:   time.Now,
		newID: func() string { return "msg_" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append creates a message with a fresh ID and the current time and appends
// it at the tail.
func (l *Log) Append(role domain.Role, text string) (domain.Message, error) {
	if !role.Valid() {
		return domain.Message{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := domain.Message{
		ID:        l.newID(),
		Role:      role,
		Text:      text,
		Timestamp: l.now(),
	}
	l.messages = append(l.messages, msg)
	return msg, nil
}

// Messages returns a copy of the log in insertion order.
func (l *Log) Messages() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Turns returns the role/text projection of the last limit messages, or of
// all messages when limit <= 0. A trimmed history starts at a user turn, so
// it may hold fewer than limit turns.
func (l *Log) Turns(limit int) []domain.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
		for len(msgs) > 0 && msgs[0].Role != domain.RoleUser {
			msgs = msgs[1:]
		}
	}
	turns := make([]domain.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = domain.Turn{Role: m.Role, Text: m.Text}
	}
	return turns
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Reset drops every message.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}
