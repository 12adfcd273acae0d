package conversation

import (
	"fmt"
	"time"
)

// Session owns the active thread: the message list, the active
// conversation id, and the one-shot force-new flag set when the user
// asks for a fresh thread. Session is not safe for concurrent use; in
// the TUI it is only ever touched from the update loop.
type Session struct {
	messages []Message
	activeID string

	// forceNew makes the next send open a new server-side thread even
	// though messages may still be on screen. It is consumed by
	// ConsumeForceNew exactly once.
	forceNew bool
}

// NewSession returns an empty session with no active thread.
func NewSession() *Session {
	return &Session{}
}

// Messages returns the live message slice. Callers must treat it as
// read-only; all writes go through the session methods.
func (s *Session) Messages() []Message {
	return s.messages
}

// Len returns the number of messages in the active thread.
func (s *Session) Len() int { return len(s.messages) }

// ActiveID returns the id of the active thread, or "" when the thread
// has not been persisted server-side yet.
func (s *Session) ActiveID() string { return s.activeID }

// SetActiveID records the server-assigned id once the first exchange
// of a new thread completes.
func (s *Session) SetActiveID(id string) { s.activeID = id }

// Append adds a message to the end of the thread.
func (s *Session) Append(msg Message) {
	s.messages = append(s.messages, msg)
}

// Replace swaps the whole thread in one step, used when adopting a
// conversation loaded from the server.
func (s *Session) Replace(id string, msgs []Message) {
	s.activeID = id
	s.messages = msgs
	s.forceNew = false
}

// StartNew clears the thread and arms the force-new flag so the next
// send opens a fresh server-side conversation.
func (s *Session) StartNew() {
	s.messages = nil
	s.activeID = ""
	s.forceNew = true
}

// ConsumeForceNew reports whether the force-new flag was armed and
// disarms it. The flag survives failed sends only because Retry calls
// re-arm it when the failed turn was the first of a new thread.
func (s *Session) ConsumeForceNew() bool {
	v := s.forceNew
	s.forceNew = false
	return v
}

// ArmForceNew re-arms the one-shot flag, used when a send that was
// meant to open a new thread fails before the server assigned an id.
func (s *Session) ArmForceNew() { s.forceNew = true }

// Drop reacts to a server-side delete. Deleting the active thread
// clears the screen and leaves the session in the same state as
// StartNew; deleting any other thread is a no-op here.
func (s *Session) Drop(id string) {
	if s.activeID == id {
		s.StartNew()
	}
}

// find returns the index of the message with the given timestamp, or
// -1. Search runs back to front because reconciliation almost always
// targets the newest turn.
func (s *Session) find(timestamp int64) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Timestamp == timestamp {
			return i
		}
	}
	return -1
}

// Resolve marks the pending user turn identified by timestamp as sent
// and appends the assistant reply. If no message carries the timestamp
// (the thread was swapped while the send was in flight) the reply is
// dropped and an error is returned so the caller can log it.
func (s *Session) Resolve(timestamp int64, reply Message) error {
	i := s.find(timestamp)
	if i < 0 {
		return fmt.Errorf("resolve: no message with timestamp %d", timestamp)
	}
	s.messages[i].Status = StatusSent
	s.messages[i].Thinking = nil
	s.Append(reply)
	return nil
}

// Fail marks the pending user turn identified by timestamp as failed.
// The content stays in place so the slot can be retried.
func (s *Session) Fail(timestamp int64) error {
	i := s.find(timestamp)
	if i < 0 {
		return fmt.Errorf("fail: no message with timestamp %d", timestamp)
	}
	s.messages[i].Status = StatusError
	return nil
}

// SetThinking attaches staged diagnostic text to the turn identified
// by timestamp. It is shown under the turn while the progress
// indicator rides out its minimum display window.
func (s *Session) SetThinking(timestamp int64, t *Thinking) {
	if i := s.find(timestamp); i >= 0 {
		s.messages[i].Thinking = t
	}
}

// ClearThinking removes staged diagnostic text everywhere, called when
// the progress indicator is dismissed.
func (s *Session) ClearThinking() {
	for i := range s.messages {
		s.messages[i].Thinking = nil
	}
}

// Retry flips a failed turn back to sending, restamps it with the
// current instant, and returns the refreshed message. The same slot is
// reused; no duplicate turn is appended.
func (s *Session) Retry(timestamp int64, now time.Time) (Message, error) {
	i := s.find(timestamp)
	if i < 0 {
		return Message{}, fmt.Errorf("retry: no message with timestamp %d", timestamp)
	}
	if !s.messages[i].Retryable() {
		return Message{}, fmt.Errorf("retry: message at %d is not retryable", timestamp)
	}
	s.messages[i].Status = StatusSending
	s.messages[i].Timestamp = now.UnixMilli()
	return s.messages[i], nil
}

// LastFailed returns the most recent failed user turn, if any.
func (s *Session) LastFailed() (Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Retryable() {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// HasPending reports whether any turn is still awaiting a reply.
func (s *Session) HasPending() bool {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Status == StatusSending {
			return true
		}
	}
	return false
}
