package social

import (
	"sync"
)

// FameEntry records one award of fame.
type FameEntry struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// FameTracker accumulates the player's fame.
type FameTracker struct {
	mu      sync.Mutex
	total   int
	entries []FameEntry
}

// NewFameTracker creates a tracker starting at the given total.
func NewFameTracker(initial int) *FameTracker {
	return &FameTracker{total: initial}
}

// AddFame awards fame with a reason for the saga log.
func (f *FameTracker) AddFame(amount int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total += amount
	f.entries = append(f.entries, FameEntry{Amount: amount, Reason: reason})
}

// Total returns accumulated fame.
func (f *FameTracker) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// Entries returns the award log, oldest first.
func (f *FameTracker) Entries() []FameEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FameEntry(nil), f.entries...)
}
