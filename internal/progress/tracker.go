package progress

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable point-in-time view of a running session.
type Snapshot struct {
	// Completed counts tasks finished so far: successes, failures, and skips.
	Completed int
	// Total is the number of tasks in the session.
	Total int

	Succeeded int
	Failed    int
	Skipped   int

	// Bytes is the total number of bytes written so far.
	Bytes int64
	// BytesPerSecond is the mean transfer rate since the session started.
	BytesPerSecond float64

	// ETA estimates the remaining wall time. Valid only when HasETA is
	// set, which requires at least one completed task.
	ETA    time.Duration
	HasETA bool
}

// Tracker is a single-slot, latest-wins handoff between the download loop
// and whatever renders progress. Publish never blocks, and a slow reader
// only ever misses intermediate snapshots; the most recent one always wins.
type Tracker struct {
	latest atomic.Pointer[Snapshot]
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Publish replaces the latest snapshot.
func (t *Tracker) Publish(s Snapshot) {
	t.latest.Store(&s)
}

// Latest returns the most recently published snapshot. The second return
// value is false until the first Publish.
func (t *Tracker) Latest() (Snapshot, bool) {
	p := t.latest.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}
