// Package connectivity watches reachability of the backend and reports
// transitions. Consumers read edge events from a channel; level state
// is available from Online for rendering.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ProbeInterval is the default spacing between reachability checks.
const ProbeInterval = 10 * time.Second

// Probe reports whether the backend is currently reachable.
type Probe func(ctx context.Context) bool

// Event is a connectivity transition. Only edges are delivered; steady
// state produces no events.
type Event struct {
	Online bool
	At     time.Time
}

// Monitor polls a probe and publishes transitions. Safe for concurrent
// use; Run is expected to live on its own goroutine for the life of
// the program.
type Monitor struct {
	probe    Probe
	interval time.Duration
	events   chan Event

	mu     sync.RWMutex
	online bool
}

// New builds a monitor that starts in the online state, matching the
// optimistic assumption made before the first probe completes.
func New(probe Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = ProbeInterval
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		events:   make(chan Event, 4),
		online:   true,
	}
}

// HTTPProbe returns a probe that issues a HEAD request against url.
// Any response at all counts as reachable; only transport errors mean
// offline.
func HTTPProbe(url string) Probe {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Online returns the last observed reachability.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Events returns the transition channel. It is closed when Run exits.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Run probes until the context is cancelled. Transitions are dropped
// rather than blocking when the consumer falls behind; the next edge
// carries the current state anyway.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.events)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	now := m.probe(ctx)

	m.mu.Lock()
	changed := now != m.online
	m.online = now
	m.mu.Unlock()

	if !changed {
		return
	}
	select {
	case m.events <- Event{Online: now, At: time.Now()}:
	default:
	}
}
