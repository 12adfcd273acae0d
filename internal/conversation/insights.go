package conversation

import "sort"

// Score caps. A loaded thread can show a perfect score; live exchanges
// top out one below it so there is always visible headroom mid-session.
const (
	loadScoreCap     = 100
	exchangeScoreCap = 99
	maxScoreBump     = 3
)

// Insights accumulates the coaching signal readout for the active
// thread: the distinct pattern labels the coach has detected and a
// rough clarity score.
type Insights struct {
	score    int
	patterns []string
	seen     map[string]bool
}

// Score returns the current clarity score in [0, 100].
func (i *Insights) Score() int { return i.score }

// Patterns returns the detected pattern labels in first-seen order.
func (i *Insights) Patterns() []string { return i.patterns }

// LoadFrom rebuilds the insights from a full message history. The
// score is five points per message, capped.
func (i *Insights) LoadFrom(msgs []Message) {
	i.Reset()
	for _, msg := range msgs {
		if msg.System {
			continue
		}
		i.score += 5
		i.collect(msg.Signals)
	}
	if i.score > loadScoreCap {
		i.score = loadScoreCap
	}
}

// Absorb folds one exchange's signals in. The score climbs one point
// plus one per newly detected pattern, capped per bump and overall.
func (i *Insights) Absorb(signals map[string]float64) {
	before := len(i.patterns)
	i.collect(signals)

	bump := 1 + len(i.patterns) - before
	if bump > maxScoreBump {
		bump = maxScoreBump
	}
	i.score += bump
	if i.score > exchangeScoreCap {
		i.score = exchangeScoreCap
	}
}

// Reset clears the insights for a fresh thread.
func (i *Insights) Reset() {
	i.score = 0
	i.patterns = nil
	i.seen = nil
}

func (i *Insights) collect(signals map[string]float64) {
	if len(signals) == 0 {
		return
	}
	if i.seen == nil {
		i.seen = make(map[string]bool)
	}
	labels := make([]string, 0, len(signals))
	for label := range signals {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if !i.seen[label] {
			i.seen[label] = true
			i.patterns = append(i.patterns, label)
		}
	}
}
