package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, sessionID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:   "evt_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
		Type:      eventType,
		Payload:   payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// journal records an event and only logs failures. The journal outlives
// request cancellation.
func (s *Service) journal(ctx context.Context, sessionID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(context.WithoutCancel(ctx), sessionID, eventType, payload); err != nil {
		s.logger.Warn("failed to record event",
			zap.String("session_id", sessionID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}

// broadcast pushes a frame to the session's stream connections, if any.
func (s *Service) broadcast(sessionID string, v interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.BroadcastJSON(sessionID, v); err != nil {
		s.logger.Warn("failed to broadcast frame", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// GetEvents returns the journal of a session, including ended ones.
func (s *Service) GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	rec, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrSessionNotFound
	}
	events, err := s.store.GetEvents(ctx, sessionID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
