package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/policy"
	"github.com/xiaot623/smartdoc/internal/prompt"
	"github.com/xiaot623/smartdoc/internal/protocol"
)

// Analyze runs a simulated analysis of an uploaded file's metadata and makes
// it the session's latest analysis. The previous analysis is cleared as soon
// as the upload is admitted.
func (s *Service) Analyze(ctx context.Context, sessionID string, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	req.Company = strings.TrimSpace(req.Company)
	req.DocumentType = strings.TrimSpace(req.DocumentType)
	if req.Company == "" || req.DocumentType == "" {
		return nil, fmt.Errorf("%w: company and document_type are required", domain.ErrInvalidRequest)
	}

	st, release, err := s.acquire(sessionID, domain.CallKindAnalysis)
	if err != nil {
		return nil, err
	}
	defer release()

	decision, err := s.policyEngine.Evaluate(ctx, policy.UploadInput{
		FileName:     req.FileName,
		FileType:     req.FileType,
		FileSize:     req.FileSize,
		Company:      req.Company,
		DocumentType: req.DocumentType,
		MaxBytes:     s.config.MaxUploadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate upload policy: %w", err)
	}
	if !decision.Allowed() {
		s.journal(ctx, sessionID, domain.EventTypeUploadRejected, domain.UploadRejectedPayload{
			FileName: req.FileName,
			FileType: req.FileType,
			FileSize: req.FileSize,
			Reason:   decision.Reason,
		})
		return nil, fmt.Errorf("%w: %s", domain.ErrUploadRejected, decision.Reason)
	}

	st.mu.Lock()
	st.analysis = nil
	st.mu.Unlock()

	analysisPrompt := prompt.BuildAnalysisPrompt(req.FileName, req.FileType, req.Company, req.DocumentType)
	reply := s.callModel(ctx, sessionID, domain.CallKindAnalysis, 0, func(ctx context.Context) llm.Reply {
		return s.assistant.Complete(ctx, analysisPrompt)
	})

	result := &domain.AnalysisResult{
		ID:        "ana_" + uuid.New().String()[:8],
		FileName:  req.FileName,
		Markdown:  reply.Text,
		Fallback:  reply.Fallback,
		CreatedAt: time.Now(),
	}

	st.mu.Lock()
	st.analysis = result
	st.mu.Unlock()

	s.journal(ctx, sessionID, domain.EventTypeAnalysisDone, domain.AnalysisDonePayload{
		AnalysisID:   result.ID,
		FileName:     req.FileName,
		DocumentType: req.DocumentType,
		Company:      req.Company,
		Fallback:     reply.Fallback,
	})
	s.broadcast(sessionID, protocol.AnalysisMessage{
		BaseMessage: protocol.NewBase(protocol.TypeAnalysis, sessionID),
		Analysis:    *result,
	})

	out := *result
	return &out, nil
}

// LatestAnalysis returns the session's latest analysis, or nil when there is
// none.
func (s *Service) LatestAnalysis(ctx context.Context, sessionID string) (*domain.AnalysisResult, error) {
	st, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.analysis == nil {
		return nil, nil
	}
	out := *st.analysis
	return &out, nil
}
