// Package conversation holds the chat domain model: messages, their
// status lifecycle, conversations, and the session state that owns the
// active message list. All mutation goes through Session so the TUI and
// the send controller never write into the list directly.
package conversation

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks the delivery lifecycle of a user-authored message.
// Historical messages come back from the server without a status; the
// zero value is treated as sent.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSending Status = "sending"
	StatusError   Status = "error"
)

// Thinking carries the staged diagnostic text the backend returns for a
// single turn. It is only held while that turn is in flight and is
// discarded once the turn settles.
type Thinking struct {
	Observation string `json:"observation,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Evaluation  string `json:"evaluation,omitempty"`
}

// Message is a single chat turn. Timestamp (unix milliseconds) is the
// identity key: reconciliation after a send mutates exactly the one
// message whose timestamp matches the originating send.
type Message struct {
	Role      Role               `json:"role"`
	Content   string             `json:"content"`
	Signals   map[string]float64 `json:"signals,omitempty"`
	Thinking  *Thinking          `json:"thinking,omitempty"`
	Timestamp int64              `json:"timestamp"`
	Status    Status             `json:"status,omitempty"`

	// System marks messages synthesized client-side (welcome, stale
	// re-entry). They are never persisted to the server.
	System bool `json:"-"`
}

// Resolved reports whether the message is in a terminal, successfully
// delivered state. Zero-status history loads count as sent.
func (m Message) Resolved() bool {
	return m.Status == "" || m.Status == StatusSent
}

// Retryable reports whether the message slot is eligible for a manual
// retry: only failed user turns qualify.
func (m Message) Retryable() bool {
	return m.Role == RoleUser && m.Status == StatusError
}

// NewUserMessage creates an optimistic pending user turn stamped with
// the current instant.
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Signals:   map[string]float64{},
		Timestamp: now.UnixMilli(),
		Status:    StatusSending,
	}
}

// NewAssistantMessage creates a fully formed assistant turn.
func NewAssistantMessage(content string, signals map[string]float64, now time.Time) Message {
	if signals == nil {
		signals = map[string]float64{}
	}
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Signals:   signals,
		Timestamp: now.UnixMilli(),
		Status:    StatusSent,
	}
}

// NewSystemMessage creates a client-side note that is rendered but
// never sent to the backend.
func NewSystemMessage(content string, now time.Time) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: now.UnixMilli(),
		Status:    StatusSent,
		System:    true,
	}
}

// Conversation is a server-persisted thread. ID is opaque; an empty ID
// means the thread has not been persisted yet. Title is assigned
// asynchronously by the backend after the first exchange.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayTitle returns the title or a placeholder for untitled threads.
func (c Conversation) DisplayTitle() string {
	if c.Title == "" {
		return "New Conversation"
	}
	return c.Title
}
