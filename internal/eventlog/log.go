package eventlog

import "sync"

// Log is an append-only event buffer shared between the hook callbacks
// that produce events and whoever snapshots them. The lock guards only
// the O(1) append and the copy-on-read snapshot; it is never held across
// I/O or hook dispatch.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append adds one event. Events are never mutated after append.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Snapshot returns an independent copy of everything appended so far. Safe
// to call while capture is active.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len reports the number of appended events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
