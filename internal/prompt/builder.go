// Package prompt builds the text payloads sent to the generative model.
package prompt

import (
	"fmt"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// Analysis section headers, in the order the model must emit them.
const (
	SectionSummary         = "Resumo Executivo"
	SectionKeyClauses      = "Cláusulas e Pontos Chave"
	SectionRiskAnalysis    = "Análise de Risco"
	SectionRecommendations = "Recomendações"
)

const chatSystemTemplate = `You are Smart Doc, an intelligent assistant for the company.
The user is asking questions about the subject: "%s".
Assume you have access to a vast knowledge base about this topic.
Answer professionally, concisely, and use Markdown formatting.
If the question is about specific internal documents, pretend you found relevant info.`

const analysisTemplate = `Atue como um analista de documentos sênior e especialista jurídico.
Acabei de fazer upload de um documento com os seguintes detalhes:
- Nome do Arquivo: %[1]s
- Formato: %[2]s
- Contexto da Empresa: %[3]s
- Tipo de Documento: %[4]s

Por favor, forneça uma análise simulada e detalhada do que este documento provavelmente contém.
Estruture sua resposta estritamente em Markdown (pt-BR) com as seguintes seções:
1. **%[5]s**: Uma visão geral breve e direta do propósito do documento.
2. **%[6]s**: Detalhes importantes extraídos que são tipicamente críticos em um %[4]s.
3. **%[7]s**: Riscos potenciais encontrados (Alto/Médio/Baixo) e pontos de atenção.
4. **%[8]s**: Ações sugeridas para a empresa.

Mantenha o tom profissional, corporativo e realista, preenchendo com dados fictícios plausíveis para este tipo de documento.`

// ChatSystemInstruction returns the system instruction for a subject.
func ChatSystemInstruction(subject string) string {
	return fmt.Sprintf(chatSystemTemplate, subject)
}

// BuildChatContext returns the system instruction for subject and the turns to
// send: history in its original order followed by newMessage as a user turn.
// history is not modified.
func BuildChatContext(subject string, history []domain.Turn, newMessage string) (string, []domain.Turn) {
	turns := make([]domain.Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, domain.Turn{Role: domain.RoleUser, Text: newMessage})
	return ChatSystemInstruction(subject), turns
}

// BuildAnalysisPrompt returns the analysis prompt for a file's metadata. Only
// metadata is used; the model is asked to simulate the document's contents.
func BuildAnalysisPrompt(fileName, fileType, company, docType string) string {
	return fmt.Sprintf(analysisTemplate,
		fileName, fileType, company, docType,
		SectionSummary, SectionKeyClauses, SectionRiskAnalysis, SectionRecommendations,
	)
}
