package testutil

import (
	"fmt"
	"sync"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// CaptureLogger records log calls for assertions. Safe for concurrent
// use.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

func (l *CaptureLogger) Debug(msg string, args ...any) { l.append("debug", msg, args) }
func (l *CaptureLogger) Info(msg string, args ...any)  { l.append("info", msg, args) }
func (l *CaptureLogger) Warn(msg string, args ...any)  { l.append("warn", msg, args) }
func (l *CaptureLogger) Error(msg string, args ...any) { l.append("error", msg, args) }

func (l *CaptureLogger) append(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of everything captured so far.
func (l *CaptureLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Contains reports whether any captured entry at level has msg.
func (l *CaptureLogger) Contains(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// String renders the captured entries, for test failure output.
func (l *CaptureLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := ""
	for _, e := range l.entries {
		out += fmt.Sprintf("[%s] %s %v\n", e.Level, e.Msg, e.Args)
	}
	return out
}
