package services

import (
	"sync"
	"time"
)

// LoopStatus is a point-in-time snapshot of a background loop.
type LoopStatus struct {
	Running     bool
	LastOutcome string
	LastError   string
	LastTick    time.Time
}

// LoopTracker records a loop's liveness and the outcome of its most recent
// tick. The zero value is ready to use and safe for concurrent access.
type LoopTracker struct {
	mu     sync.Mutex
	status LoopStatus
}

// SetRunning flips the loop's running flag.
func (t *LoopTracker) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = running
}

// RecordTick stores the outcome of a completed tick. A nil err clears the
// last recorded error.
func (t *LoopTracker) RecordTick(outcome string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastOutcome = outcome
	t.status.LastTick = time.Now()
	if err != nil {
		t.status.LastError = err.Error()
	} else {
		t.status.LastError = ""
	}
}

// Status returns a copy of the current snapshot.
func (t *LoopTracker) Status() LoopStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
