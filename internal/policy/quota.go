package policy

import (
	"sync"
	"time"
)

// QuotaState tracks generation events for the current calendar day.
// The day-rollover check and reset form a single critical section.
type QuotaState struct {
	mu             sync.Mutex
	generatedToday int
	dayKey         string
	dailyLimit     int
}

// NewQuotaState builds quota state with the given daily limit.
func NewQuotaState(dailyLimit int) *QuotaState {
	return &QuotaState{dailyLimit: dailyLimit}
}

func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// CanGenerate reports whether another generation may occur at now.
// Crossing midnight resets the counter as a side effect of the check.
func (q *QuotaState) CanGenerate(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked(now)
	return q.generatedToday < q.dailyLimit
}

// Consume records one successful generation. Failed generation attempts must
// not call Consume: failures never use quota.
func (q *QuotaState) Consume(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked(now)
	q.generatedToday++
}

// Usage returns the current counter and limit.
func (q *QuotaState) Usage(now time.Time) (used, limit int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked(now)
	return q.generatedToday, q.dailyLimit
}

func (q *QuotaState) rollLocked(now time.Time) {
	key := dayKey(now)
	if q.dayKey != key {
		q.dayKey = key
		q.generatedToday = 0
	}
}
