// Package domain defines the core domain models for smartdoc.
package domain

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the two conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// EventType represents the type of a journaled session event.
type EventType string

const (
	EventTypeSessionStarted  EventType = "session_started"
	EventTypeSessionReset    EventType = "session_reset"
	EventTypeSessionEnded    EventType = "session_ended"
	EventTypeSubjectChanged  EventType = "subject_changed"
	EventTypeMessageAppended EventType = "message_appended"
	// LLM call events
	EventTypeLLMCallStarted EventType = "llm_call_started"
	EventTypeLLMCallDone    EventType = "llm_call_done"

	// Analysis events
	EventTypeUploadRejected EventType = "upload_rejected"
	EventTypeAnalysisDone   EventType = "analysis_done"
)

// CallKind distinguishes the two outbound model calls.
type CallKind string

const (
	CallKindChat     CallKind = "chat"
	CallKindAnalysis CallKind = "analysis"
)
