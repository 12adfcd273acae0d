package conversation

import (
	"fmt"
	"time"
)

// StaleAfter is the gap past which re-entering a thread earns a
// welcome-back bridge message instead of dropping the user straight
// into an old exchange.
const StaleAfter = time.Hour

const excerptLen = 30

// WelcomeBack inspects a freshly loaded thread and, when the last
// message is older than StaleAfter, returns a synthetic system message
// quoting the tail of the previous exchange. Returns false when the
// thread is empty or still fresh.
func WelcomeBack(msgs []Message, now time.Time) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	last := msgs[len(msgs)-1]
	age := now.Sub(time.UnixMilli(last.Timestamp))
	if age <= StaleAfter {
		return Message{}, false
	}
	excerpt := last.Content
	if runes := []rune(excerpt); len(runes) > excerptLen {
		excerpt = string(runes[:excerptLen])
	}
	return Message{
		Role:      RoleAssistant,
		Content:   fmt.Sprintf("Welcome back. We left off at: \"%s...\"", excerpt),
		Timestamp: now.UnixMilli(),
		System:    true,
	}, true
}
