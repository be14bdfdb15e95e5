package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// Fallback texts shown whenever an outbound call fails.
const (
	ChatFallback     = "Sorry, I encountered an error accessing the knowledge base."
	AnalysisFallback = "Não foi possível analisar o documento neste momento."
)

// Reply is the outcome of one outbound call. Text is always displayable: it
// holds the model's answer, or the fallback string when Fallback is set, in
// which case Err carries the original cause.
type Reply struct {
	Text     string
	Fallback bool
	Err      error
	Model    string
	Latency  time.Duration
}

// Assistant performs one round-trip per call and absorbs every failure into
// a fallback Reply.
type Assistant struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewAssistant wraps gen. A zero timeout means calls are bounded only by the
// caller's context.
func NewAssistant(gen Generator, timeout time.Duration, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{gen: gen, timeout: timeout, logger: logger.Named("assistant")}
}

// Model returns the underlying model identifier.
func (a *Assistant) Model() string {
	return a.gen.Model()
}

// Chat sends systemInstruction and turns and returns the model's text or
// ChatFallback.
func (a *Assistant) Chat(ctx context.Context, systemInstruction string, turns []domain.Turn) Reply {
	return a.call(ctx, domain.CallKindChat, ChatFallback, func(ctx context.Context) (string, error) {
		return a.gen.GenerateChat(ctx, &ChatRequest{SystemInstruction: systemInstruction, Turns: turns})
	})
}

// Complete sends a single prompt and returns the model's text or
// AnalysisFallback.
func (a *Assistant) Complete(ctx context.Context, prompt string) Reply {
	return a.call(ctx, domain.CallKindAnalysis, AnalysisFallback, func(ctx context.Context) (string, error) {
		return a.gen.GenerateText(ctx, prompt)
	})
}

func (a *Assistant) call(ctx context.Context, kind domain.CallKind, fallback string, fn func(context.Context) (string, error)) (reply Reply) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	reply.Model = a.gen.Model()

	defer func() {
		if r := recover(); r != nil {
			reply.Text = fallback
			reply.Fallback = true
			reply.Err = fmt.Errorf("generator panic: %v", r)
		}
		reply.Latency = time.Since(start)
		if reply.Fallback {
			a.logger.Warn("model call failed, using fallback",
				zap.String("kind", string(kind)),
				zap.String("model", reply.Model),
				zap.Duration("latency", reply.Latency),
				zap.Error(reply.Err),
			)
		}
	}()

	text, err := fn(ctx)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		reply.Text = fallback
		reply.Fallback = true
		reply.Err = err
		return reply
	}

	reply.Text = text
	return reply
}
