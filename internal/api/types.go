package api

import "clarity/internal/conversation"

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the payload for a coaching exchange.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	NewChat        bool   `json:"new_chat,omitempty"`
	FastMode       bool   `json:"fast_mode,omitempty"`
	SearchMode     bool   `json:"search_mode,omitempty"`
}

// ChatResponse is the backend's reply to a single exchange. The
// conversation id is always echoed back so a new thread learns its
// server-assigned identity from the first reply.
type ChatResponse struct {
	Response       string                 `json:"response"`
	Signals        map[string]float64     `json:"signals,omitempty"`
	Thinking       *conversation.Thinking `json:"thinking,omitempty"`
	ConversationID string                 `json:"conversation_id"`
	Title          string                 `json:"title,omitempty"`
}

// conversationRecord is the list-endpoint shape. CreatedAt arrives as
// unix milliseconds.
type conversationRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type conversationList struct {
	Conversations []conversationRecord `json:"conversations"`
}

type historyResponse struct {
	Messages []conversation.Message `json:"messages"`
}

type errorBody struct {
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}
