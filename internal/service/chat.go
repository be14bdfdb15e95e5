package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/prompt"
)

// SendMessage appends text as a user message, asks the model and appends
// exactly one model message: the answer or the chat fallback. A second call
// while one is in flight fails with domain.ErrSessionBusy.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (*domain.ChatExchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	st, release, err := s.acquire(sessionID, domain.CallKindChat)
	if err != nil {
		return nil, err
	}
	defer release()

	st.mu.Lock()
	subject := st.subject
	st.mu.Unlock()

	history := st.log.Turns(s.config.HistoryLimit)
	systemInstruction, turns := prompt.BuildChatContext(subject, history, text)

	userMsg, err := s.appendMessage(ctx, st, domain.RoleUser, text, false)
	if err != nil {
		return nil, err
	}

	reply := s.callModel(ctx, sessionID, domain.CallKindChat, len(turns), func(ctx context.Context) llm.Reply {
		return s.assistant.Chat(ctx, systemInstruction, turns)
	})

	modelMsg, err := s.appendMessage(ctx, st, domain.RoleModel, reply.Text, reply.Fallback)
	if err != nil {
		return nil, err
	}

	return &domain.ChatExchange{User: userMsg, Reply: modelMsg, Fallback: reply.Fallback}, nil
}

// callModel wraps one outbound call with llm_call_started/llm_call_done
// journal entries.
func (s *Service) callModel(ctx context.Context, sessionID string, kind domain.CallKind, turns int, call func(context.Context) llm.Reply) llm.Reply {
	requestID := "llm_" + uuid.New().String()[:8]
	model := s.assistant.Model()

	s.journal(ctx, sessionID, domain.EventTypeLLMCallStarted, domain.LLMCallStartedPayload{
		RequestID: requestID,
		Kind:      kind,
		Model:     model,
		Turns:     turns,
	})

	reply := call(ctx)

	payload := domain.LLMCallDonePayload{
		RequestID: requestID,
		Kind:      kind,
		Model:     reply.Model,
		LatencyMs: reply.Latency.Milliseconds(),
		Fallback:  reply.Fallback,
	}
	if reply.Err != nil {
		payload.Error = reply.Err.Error()
	}
	s.journal(ctx, sessionID, domain.EventTypeLLMCallDone, payload)

	return reply
}
