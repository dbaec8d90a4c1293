// Package notify holds the transient notification queue shown as toasts.
// It is plain data plus an explicit Tick so the countdown, undo and dismiss
// semantics are testable without a running UI.
package notify

import "fmt"

// Notification is a single transient message. Seconds counts down on each
// Tick when Countdown is set; at zero the notification expires. OnUndo both
// cancels the pending side effect and removes the notification. OnDismiss
// fires once, before removal, whenever the notification goes away without
// an explicit undo. That hook is what commits a deferred delete.
type Notification struct {
	ID          string
	Title       string
	Description string
	Countdown   bool
	Seconds     int
	OnUndo      func()
	OnDismiss   func()

	fired bool
}

// Queue is an ordered collection of live notifications.
type Queue struct {
	items []*Notification
	seq   int
}

func NewQueue() *Queue {
	return &Queue{}
}

// Add appends a notification, assigning a generated id when none is given
// (explicit ids correlate a toast with a pending action). Returns the id.
func (q *Queue) Add(n Notification) string {
	if n.ID == "" {
		q.seq++
		n.ID = fmt.Sprintf("notif-%d", q.seq)
	} else {
		// Re-adding under the same id replaces the previous toast.
		q.drop(n.ID)
	}
	q.items = append(q.items, &n)
	return n.ID
}

// Remove closes a notification without undo: the dismiss callback fires
// before removal.
func (q *Queue) Remove(id string) {
	for _, n := range q.items {
		if n.ID == id {
			n.dismiss()
			break
		}
	}
	q.drop(id)
}

// Undo cancels the pending side effect and removes the notification. The
// dismiss callback does not fire.
func (q *Queue) Undo(id string) {
	for _, n := range q.items {
		if n.ID == id {
			if n.OnUndo != nil {
				n.OnUndo()
			}
			n.fired = true // undo supersedes dismissal
			break
		}
	}
	q.drop(id)
}

// Tick advances every countdown by one second and expires those that reach
// zero, firing their dismiss callbacks. Returns the expired ids.
func (q *Queue) Tick() []string {
	var expired []string
	kept := q.items[:0]
	for _, n := range q.items {
		if !n.Countdown {
			kept = append(kept, n)
			continue
		}
		n.Seconds--
		if n.Seconds > 0 {
			kept = append(kept, n)
			continue
		}
		n.dismiss()
		expired = append(expired, n.ID)
	}
	q.items = kept
	return expired
}

// Items returns a snapshot in display order.
func (q *Queue) Items() []Notification {
	out := make([]Notification, len(q.items))
	for i, n := range q.items {
		out[i] = *n
	}
	return out
}

func (q *Queue) Len() int { return len(q.items) }

// Pending reports whether any countdown notification is still live.
func (q *Queue) Pending() bool {
	for _, n := range q.items {
		if n.Countdown {
			return true
		}
	}
	return false
}

func (n *Notification) dismiss() {
	if n.fired {
		return
	}
	n.fired = true
	if n.OnDismiss != nil {
		n.OnDismiss()
	}
}

func (q *Queue) drop(id string) {
	kept := q.items[:0]
	for _, n := range q.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	q.items = kept
}
