package domain

import (
	"time"
)

// Session is the public view of a chat/analysis session.
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Subject      string    `json:"subject"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Pending      bool      `json:"pending"`
}

// Message represents a single message in a session's conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the role/text projection of a Message sent to the model.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChatExchange is the result of one send: the user's message and the single
// model message that answers it.
type ChatExchange struct {
	User     Message `json:"user"`
	Reply    Message `json:"reply"`
	Fallback bool    `json:"fallback"`
}
