package app

import (
	"sync"
	"time"
)

// activityCap bounds the in-memory console; older entries fall off.
const activityCap = 200

// ActivityEntry is one line of the service's console surface, mirroring what
// the log writes.
type ActivityEntry struct {
	Time time.Time `json:"time"`
	Kind string    `json:"kind"` // system | ai | error
	Text string    `json:"text"`
}

// ActivityLog is a fixed-size ring of recent entries.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	next    int
	full    bool
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{entries: make([]ActivityEntry, activityCap)}
}

func (l *ActivityLog) Add(kind, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = ActivityEntry{Time: time.Now(), Kind: kind, Text: text}
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns entries oldest first.
func (l *ActivityLog) Recent() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ActivityEntry
	if l.full {
		out = append(out, l.entries[l.next:]...)
	}
	out = append(out, l.entries[:l.next]...)
	return out
}
