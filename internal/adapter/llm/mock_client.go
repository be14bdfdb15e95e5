package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// MockClient is an offline Generator for local runs and tests.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// GenerateChat echoes the last user turn.
func (m *MockClient) GenerateChat(ctx context.Context, req *ChatRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var lastUserMessage string
	for i := len(req.Turns) - 1; i >= 0; i-- {
		if req.Turns[i].Role == domain.RoleUser {
			lastUserMessage = req.Turns[i].Text
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the Smart Doc assistant.", nil
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100)), nil
}

// GenerateText returns a markdown skeleton with the four analysis sections.
func (m *MockClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("## Resumo Executivo\n[MOCK] Documento analisado a partir dos metadados enviados.\n\n")
	b.WriteString("## Cláusulas e Pontos Chave\n- [MOCK] Cláusula de confidencialidade\n\n")
	b.WriteString("## Análise de Risco\n- **Médio**: [MOCK] prazo de vigência indefinido\n\n")
	b.WriteString("## Recomendações\n- [MOCK] Revisar com o jurídico.\n")
	return b.String(), nil
}

// Model returns the mock model identifier.
func (m *MockClient) Model() string {
	return "mock-gemini"
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
