package domain

import "time"

// AnalysisRequest carries upload metadata for one simulated analysis.
// File content is never part of it.
type AnalysisRequest struct {
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size,omitempty"`
	Company      string `json:"company"`
	DocumentType string `json:"document_type"`
}

// AnalysisResult is an opaque markdown blob returned by the model.
type AnalysisResult struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Markdown  string    `json:"markdown"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}
