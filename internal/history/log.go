package history

import "sync"

// Entry is one line of the event history: what happened and the score then.
type Entry struct {
	Text  string `json:"text"`
	Score string `json:"score"`
}

// Log keeps entries most-recent-first. Entries are only ever prepended or
// cleared as a whole; nothing is edited or removed individually.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log { return &Log{} }

// Prepend puts e in front of every existing entry.
func (l *Log) Prepend(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries)+1)
	out = append(out, e)
	l.entries = append(out, l.entries...)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Seed replaces the whole log with a single entry.
func (l *Log) Seed(e Entry) {
	l.mu.Lock()
	l.entries = []Entry{e}
	l.mu.Unlock()
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry{}, l.entries...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
