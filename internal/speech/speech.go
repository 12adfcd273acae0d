// Package speech defines the voice interface hooks. The TUI works
// against these interfaces; the default implementation does nothing,
// and a real engine can be dropped in without touching the chat loop.
package speech

import "context"

// Recognizer turns a spoken utterance into text.
type Recognizer interface {
	// Listen blocks until an utterance completes or the context ends.
	Listen(ctx context.Context) (string, error)

	// Available reports whether recognition can actually run.
	Available() bool
}

// Synthesizer speaks assistant replies aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Available() bool
}

// Noop implements both interfaces by doing nothing.
type Noop struct{}

func (Noop) Listen(ctx context.Context) (string, error) { return "", nil }

func (Noop) Speak(ctx context.Context, text string) error { return nil }

func (Noop) Available() bool { return false }
