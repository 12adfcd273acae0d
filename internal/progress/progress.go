// Package progress implements the staged activity indicator shown while
// a reply is in flight. The stages are cosmetic pacing driven by a
// timer, not real pipeline state; the sequencer only guarantees they
// advance monotonically and never regress while a turn is pending.
package progress

import "time"

// Stage is one step of the indicator. The zero value is Idle.
type Stage int

const (
	Idle Stage = iota
	Observation
	Pattern
	Evaluation
	Clarity
	Complete
)

// TickInterval is the cadence at which a running sequencer advances.
const TickInterval = 800 * time.Millisecond

// MinVisible is the shortest time the indicator stays on screen even
// when the reply lands almost immediately, so fast turns do not flash.
const MinVisible = 300 * time.Millisecond

var labels = map[Stage]string{
	Idle:        "",
	Observation: "Observing",
	Pattern:     "Finding patterns",
	Evaluation:  "Evaluating",
	Clarity:     "Reaching clarity",
	Complete:    "Done",
}

// String returns the display label for the stage.
func (s Stage) String() string { return labels[s] }

// Running reports whether the stage is between start and completion.
func (s Stage) Running() bool { return s > Idle && s < Complete }

// Sequencer holds the current stage and the generation of the send it
// belongs to. Ticks from an older generation are ignored, which is how
// a retry restarts the sequence cleanly even when a stale timer fires
// after the reset.
type Sequencer struct {
	stage      Stage
	generation int
	startedAt  time.Time
}

// Stage returns the current stage.
func (q *Sequencer) Stage() Stage { return q.stage }

// Generation returns the id of the send the sequencer is tracking.
func (q *Sequencer) Generation() int { return q.generation }

// StartedAt returns when the current run began.
func (q *Sequencer) StartedAt() time.Time { return q.startedAt }

// Start begins a fresh run for a new send and returns its generation.
func (q *Sequencer) Start(now time.Time) int {
	q.generation++
	q.stage = Observation
	q.startedAt = now
	return q.generation
}

// Advance moves to the next stage if the tick belongs to the current
// generation. The final stage holds until the reply settles; advancing
// past Clarity is a no-op. Returns whether the tick was accepted, so
// the caller knows to schedule the next one.
func (q *Sequencer) Advance(generation int) bool {
	if generation != q.generation || !q.stage.Running() {
		return false
	}
	if q.stage < Clarity {
		q.stage++
	}
	return true
}

// Settle ends the run once its reply has arrived. Returns how much of
// MinVisible is still owed; callers wait that long before clearing the
// indicator.
func (q *Sequencer) Settle(now time.Time) time.Duration {
	if !q.stage.Running() {
		return 0
	}
	q.stage = Complete
	if owed := MinVisible - now.Sub(q.startedAt); owed > 0 {
		return owed
	}
	return 0
}

// Reset returns the sequencer to idle. Generation is preserved so late
// ticks from the finished run still miss.
func (q *Sequencer) Reset() {
	q.stage = Idle
}
