package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "SMARTDOC_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Provider names accepted by NewGenerator.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Options selects and configures a provider.
type Options struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Timeout       time.Duration
}

// NewGenerator creates a Generator for opts.Provider. SMARTDOC_MODE=MOCK
// forces the mock client regardless of provider.
func NewGenerator(ctx context.Context, opts Options, logger *zap.Logger) (Generator, error) {
	if os.Getenv(EnvMode) == ModeMock {
		logger.Info("SMARTDOC_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch strings.ToLower(opts.Provider) {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, opts.GeminiAPIKey, opts.GeminiModel, opts.GeminiBaseURL)
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" && opts.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("OpenAI provider needs OPENAI_API_KEY or OPENAI_BASE_URL")
		}
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel, opts.Timeout), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}
