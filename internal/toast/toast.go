// Package toast manages the transient notification queue. The queue
// only tracks ordering and identity; scheduling expiry is up to the
// caller, which dismisses by id so a late timer never removes the
// wrong notification.
package toast

import "time"

// TTL is how long a notification stays visible by default.
const TTL = 5 * time.Second

// Kind classifies a notification for styling.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Error   Kind = "error"
)

// Toast is a single queued notification.
type Toast struct {
	ID      int
	Message string
	Kind    Kind
}

// Queue holds active notifications in arrival order. Not safe for
// concurrent use; in the TUI it lives on the model.
type Queue struct {
	toasts []Toast
	nextID int
}

// Push appends a notification and returns its id for later dismissal.
// IDs are monotonic for the lifetime of the queue, so two toasts with
// identical text are still distinct.
func (q *Queue) Push(kind Kind, message string) int {
	q.nextID++
	q.toasts = append(q.toasts, Toast{ID: q.nextID, Message: message, Kind: kind})
	return q.nextID
}

// Dismiss removes the notification with the given id. Unknown ids are
// ignored; the toast may have been dismissed manually before its timer
// fired.
func (q *Queue) Dismiss(id int) {
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return
		}
	}
}

// Active returns the visible notifications in arrival order.
func (q *Queue) Active() []Toast {
	return q.toasts
}

// Len returns the number of visible notifications.
func (q *Queue) Len() int { return len(q.toasts) }
