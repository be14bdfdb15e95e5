// Package llm provides clients for external generative-text services and the
// fallback-guarded Assistant used by the session layer.
package llm

import (
	"context"
	"errors"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// ChatRequest is a multi-turn generation request.
type ChatRequest struct {
	SystemInstruction string
	Turns             []domain.Turn
}

// Generator defines the operations every text-generation provider supports.
type Generator interface {
	// GenerateChat sends a system instruction plus the turn history.
	GenerateChat(ctx context.Context, req *ChatRequest) (string, error)

	// GenerateText sends a single prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier requests are sent to.
	Model() string
}

// Ensure clients implement Generator interface.
var (
	_ Generator = (*GeminiClient)(nil)
	_ Generator = (*OpenAIClient)(nil)
	_ Generator = (*MockClient)(nil)
)
