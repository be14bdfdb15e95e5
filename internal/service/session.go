package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/conversation"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/protocol"
	"github.com/xiaot623/smartdoc/internal/repository"
)

// Greeting is the model message every new or reset conversation starts with.
const Greeting = "Olá! Sou o assistente Smart Doc. Selecione um tópico para começar."

const defaultUserID = "anonymous"

type sessionState struct {
	id        string
	userID    string
	createdAt time.Time
	log       *conversation.Log

	// streamMu orders a state change together with its broadcast against
	// stream subscriptions. It is taken before mu, never after.
	streamMu sync.Mutex
	ended    bool

	mu       sync.Mutex
	subject  string
	analysis *domain.AnalysisResult
	busy     bool
}

func (st *sessionState) view() domain.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.Session{
		SessionID:    st.id,
		UserID:       st.userID,
		Subject:      st.subject,
		CreatedAt:    st.createdAt,
		MessageCount: st.log.Len(),
		Pending:      st.busy,
	}
}

// CreateSession starts a session with a greeting message.
func (s *Service) CreateSession(ctx context.Context, userID, subject string) (*domain.Session, error) {
	if userID == "" {
		userID = defaultUserID
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = s.config.DefaultSubject
	}

	st := &sessionState{
		id:        "sess_" + uuid.New().String(),
		userID:    userID,
		subject:   subject,
		createdAt: time.Now(),
		log:       conversation.New(),
	}

	if err := s.store.CreateSession(ctx, &repository.SessionRecord{
		SessionID: st.id,
		UserID:    userID,
		Subject:   subject,
		CreatedAt: st.createdAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.journal(ctx, st.id, domain.EventTypeSessionStarted, domain.SessionStartedPayload{UserID: userID, Subject: subject})

	if _, err := s.appendMessage(ctx, st, domain.RoleModel, Greeting, false); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[st.id] = st
	s.mu.Unlock()

	view := st.view()
	return &view, nil
}

// GetSession returns the current view of a live session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	view := st.view()
	return &view, nil
}

// GetMessages returns the conversation of a session in order.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return st.log.Messages(), nil
}

// SetSubject switches the knowledge subject used for later messages. The
// conversation is kept.
func (s *Service) SetSubject(ctx context.Context, sessionID, subject string) (*domain.Session, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidRequest)
	}
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.streamMu.Lock()
	st.mu.Lock()
	from := st.subject
	st.subject = subject
	st.mu.Unlock()
	if from != subject {
		s.broadcast(sessionID, protocol.SubjectMessage{
			BaseMessage: protocol.NewBase(protocol.TypeSubject, sessionID),
			Subject:     subject,
		})
	}
	st.streamMu.Unlock()

	if from != subject {
		s.journal(ctx, sessionID, domain.EventTypeSubjectChanged, domain.SubjectChangedPayload{From: from, To: subject})
	}

	view := st.view()
	return &view, nil
}

// ResetConversation clears the conversation and latest analysis and seeds a
// fresh greeting. It is rejected while a call is in flight.
func (s *Service) ResetConversation(ctx context.Context, sessionID string) (*domain.Session, error) {
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.streamMu.Lock()
	st.mu.Lock()
	if st.busy {
		st.mu.Unlock()
		st.streamMu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	st.busy = true
	st.analysis = nil
	st.mu.Unlock()
	st.log.Reset()
	s.broadcast(sessionID, protocol.NewBase(protocol.TypeCleared, sessionID))
	st.streamMu.Unlock()

	s.journal(ctx, sessionID, domain.EventTypeSessionReset, struct{}{})
	_, err = s.appendMessage(ctx, st, domain.RoleModel, Greeting, false)

	st.mu.Lock()
	st.busy = false
	st.mu.Unlock()

	if err != nil {
		return nil, err
	}
	view := st.view()
	return &view, nil
}

// EndSession drops the in-memory state of a session and disconnects its
// stream. The journal is kept.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	st.streamMu.Lock()
	st.ended = true
	if s.broadcaster != nil {
		s.broadcaster.CloseSession(sessionID)
	}
	st.streamMu.Unlock()

	if err := s.store.EndSession(ctx, sessionID, time.Now()); err != nil {
		s.logger.Warn("failed to mark session ended", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.journal(ctx, sessionID, domain.EventTypeSessionEnded, domain.SessionEndedPayload{Messages: st.log.Len()})
	return nil
}

// Subscribe calls attach with a snapshot of the session and its messages.
// No frame is broadcast for the session while attach runs, so a stream that
// registers inside attach receives every change made after the snapshot and
// none made before it.
func (s *Service) Subscribe(ctx context.Context, sessionID string, attach func(domain.Session, []domain.Message) error) error {
	st, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	st.streamMu.Lock()
	defer st.streamMu.Unlock()
	if st.ended {
		return domain.ErrSessionNotFound
	}
	return attach(st.view(), st.log.Messages())
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) lookup(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return st, nil
}

// acquire claims the session's single in-flight slot. The returned release
// must be called once the call has finished.
func (s *Service) acquire(sessionID string, kind domain.CallKind) (*sessionState, func(), error) {
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, nil, err
	}

	st.streamMu.Lock()
	defer st.streamMu.Unlock()
	st.mu.Lock()
	if st.busy {
		st.mu.Unlock()
		return nil, nil, domain.ErrSessionBusy
	}
	st.busy = true
	st.mu.Unlock()

	s.broadcast(sessionID, protocol.PendingMessage{
		BaseMessage: protocol.NewBase(protocol.TypePending, sessionID),
		Pending:     true,
		Kind:        kind,
	})

	release := func() {
		st.streamMu.Lock()
		defer st.streamMu.Unlock()
		st.mu.Lock()
		st.busy = false
		st.mu.Unlock()
		s.broadcast(sessionID, protocol.PendingMessage{
			BaseMessage: protocol.NewBase(protocol.TypePending, sessionID),
			Pending:     false,
			Kind:        kind,
		})
	}
	return st, release, nil
}

// appendMessage appends to the conversation, journals the append and pushes
// the message to the stream.
func (s *Service) appendMessage(ctx context.Context, st *sessionState, role domain.Role, text string, fallback bool) (domain.Message, error) {
	st.streamMu.Lock()
	msg, err := st.log.Append(role, text)
	if err != nil {
		st.streamMu.Unlock()
		return domain.Message{}, err
	}
	s.broadcast(st.id, protocol.MessageMessage{
		BaseMessage: protocol.NewBase(protocol.TypeMessage, st.id),
		Message:     msg,
		Fallback:    fallback,
	})
	st.streamMu.Unlock()

	s.journal(ctx, st.id, domain.EventTypeMessageAppended, domain.MessageAppendedPayload{
		MessageID: msg.ID,
		Role:      msg.Role,
		Length:    len(msg.Text),
	})
	return msg, nil
}
