// Package protocol defines the frames exchanged on a session stream.
package protocol

import (
	"time"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// Frame types from client to server
const (
	TypeChat       = "chat"
	TypeSetSubject = "set_subject"
	TypeReset      = "reset"
)

// Frame types from server to client
const (
	TypeReady    = "ready"
	TypePending  = "pending"
	TypeMessage  = "message"
	TypeAnalysis = "analysis"
	TypeCleared  = "cleared"
	TypeSubject  = "subject"
	TypeError    = "error"
)

// BaseMessage contains common fields for all frames.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewBase stamps a frame header with the current time.
func NewBase(frameType, sessionID string) BaseMessage {
	return BaseMessage{Type: frameType, Ts: time.Now().UnixMilli(), SessionID: sessionID}
}

// ChatFrame asks the server to send text as the next user message.
type ChatFrame struct {
	BaseMessage
	Text string `json:"text"`
}

// SetSubjectFrame switches the knowledge subject.
type SetSubjectFrame struct {
	BaseMessage
	Subject string `json:"subject"`
}

// ReadyMessage is sent once the stream is bound to its session.
type ReadyMessage struct {
	BaseMessage
	Session  domain.Session   `json:"session"`
	Messages []domain.Message `json:"messages"`
}

// PendingMessage reports whether an outbound call is in flight.
type PendingMessage struct {
	BaseMessage
	Pending bool            `json:"pending"`
	Kind    domain.CallKind `json:"kind,omitempty"`
}

// MessageMessage carries a newly appended conversation message.
type MessageMessage struct {
	BaseMessage
	Message  domain.Message `json:"message"`
	Fallback bool           `json:"fallback,omitempty"`
}

// AnalysisMessage carries the session's latest analysis.
type AnalysisMessage struct {
	BaseMessage
	Analysis domain.AnalysisResult `json:"analysis"`
}

// SubjectMessage announces a subject change.
type SubjectMessage struct {
	BaseMessage
	Subject string `json:"subject"`
}

// ErrorMessage is sent when a client frame cannot be served.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"error"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeSessionBusy    = "session_busy"
	ErrorCodeNotFound       = "session_not_found"
	ErrorCodeInternalError  = "internal_error"
)
