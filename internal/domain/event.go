package domain

import "encoding/json"

// Event is a journaled session event. Only call and audit metadata is
// recorded here; conversation text is kept in memory.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"` // Unix milliseconds
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SessionStartedPayload is the payload for session_started.
type SessionStartedPayload struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
}

// SessionEndedPayload is the payload for session_ended.
type SessionEndedPayload struct {
	Messages int `json:"messages"`
}

// SubjectChangedPayload is the payload for subject_changed.
type SubjectChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MessageAppendedPayload is the payload for message_appended.
type MessageAppendedPayload struct {
	MessageID string `json:"message_id"`
	Role      Role   `json:"role"`
	Length    int    `json:"length"`
}

// LLMCallStartedPayload is the payload for llm_call_started.
type LLMCallStartedPayload struct {
	RequestID string   `json:"request_id"`
	Kind      CallKind `json:"kind"`
	Model     string   `json:"model"`
	Turns     int      `json:"turns,omitempty"`
}

// LLMCallDonePayload is the payload for llm_call_done.
type LLMCallDonePayload struct {
	RequestID string   `json:"request_id"`
	Kind      CallKind `json:"kind"`
	Model     string   `json:"model"`
	LatencyMs int64    `json:"latency_ms"`
	Fallback  bool     `json:"fallback"`
	Error     string   `json:"error,omitempty"`
}

// UploadRejectedPayload is the payload for upload_rejected.
type UploadRejectedPayload struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	Reason   string `json:"reason"`
}

// AnalysisDonePayload is the payload for analysis_done.
type AnalysisDonePayload struct {
	AnalysisID   string `json:"analysis_id"`
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type"`
	Company      string `json:"company"`
	Fallback     bool   `json:"fallback"`
}
