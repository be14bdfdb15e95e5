// Package service drives sessions: conversation state, outbound model calls,
// the call journal and stream broadcasts.
package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/config"
	"github.com/xiaot623/smartdoc/internal/policy"
	"github.com/xiaot623/smartdoc/internal/repository"
)

// Broadcaster pushes frames to the stream connections of a session.
type Broadcaster interface {
	BroadcastJSON(sessionID string, v interface{}) error
	CloseSession(sessionID string)
}

type Service struct {
	store        repository.Store
	assistant    *llm.Assistant
	policyEngine *policy.Engine
	broadcaster  Broadcaster
	config       *config.Config
	logger       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// New creates a Service. broadcaster may be nil when no stream is served.
func New(store repository.Store, assistant *llm.Assistant, policyEngine *policy.Engine, broadcaster Broadcaster, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		assistant:    assistant,
		policyEngine: policyEngine,
		broadcaster:  broadcaster,
		config:       cfg,
		logger:       logger.Named("service"),
		sessions:     make(map[string]*sessionState),
	}
}
