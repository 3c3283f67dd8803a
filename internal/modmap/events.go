package modmap

import (
	"sync"
	"time"
)

// Event capacity: the log accumulates up to eventHighWater entries, then
// drops the oldest until eventLowWater remain. Diagnostic only; the
// catalog is the durable log of record.
const (
	eventHighWater = 1000
	eventLowWater  = 500
)

// Event is one structured storage event.
type Event struct {
	Time       time.Time `json:"time"`
	Operation  string    `json:"operation"`
	Collection string    `json:"collection,omitempty"`
	Success    bool      `json:"success"`
	Detail     string    `json:"detail,omitempty"`
}

// EventLog is a bounded in-memory buffer of recent storage events.
// Safe for concurrent use. Constructed once per storage engine and
// shared by reference; there is no package-level instance.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Record appends one event, trimming to the low-water mark when the
// buffer reaches capacity.
func (l *EventLog) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) >= eventHighWater {
		keep := l.events[len(l.events)-eventLowWater:]
		l.events = append([]Event(nil), keep...)
	}
}

// Recent returns up to limit events, newest first. limit <= 0 returns
// everything retained.
func (l *EventLog) Recent(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.events[i])
	}
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
