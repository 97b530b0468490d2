package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLearningInterval is the minimum spacing between learning
// updates for one user.
const DefaultLearningInterval = 5 * time.Minute

// LearningThrottle rate-limits learning updates per user and batches
// edits that arrive inside a throttling window. State is process-local
// and ephemeral: losing it on restart at worst lifts the throttle
// briefly, it cannot corrupt a profile.
type LearningThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	lastRun  map[uuid.UUID]time.Time
	pending  map[uuid.UUID]int
	now      func() time.Time
}

func NewLearningThrottle(interval time.Duration) *LearningThrottle {
	if interval <= 0 {
		interval = DefaultLearningInterval
	}
	return &LearningThrottle{
		interval: interval,
		lastRun:  make(map[uuid.UUID]time.Time),
		pending:  make(map[uuid.UUID]int),
		now:      time.Now,
	}
}

// Allow reports whether a learning update may run now for the user,
// stamping the window when it does.
func (t *LearningThrottle) Allow(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.lastRun[userID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastRun[userID] = now
	return true
}

// Accumulate records an edit arriving inside a closed window and
// returns the pending count for the user.
func (t *LearningThrottle) Accumulate(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[userID]++
	return t.pending[userID]
}

// Pending returns the accumulated edit count for a user.
func (t *LearningThrottle) Pending(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[userID]
}

// TakeDue drains users that have pending edits and an expired window,
// stamping a fresh window for each so the caller can run their
// deferred update exactly once.
func (t *LearningThrottle) TakeDue() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	due := []uuid.UUID{}
	for userID, count := range t.pending {
		if count == 0 {
			delete(t.pending, userID)
			continue
		}
		if last, ok := t.lastRun[userID]; ok && now.Sub(last) < t.interval {
			continue
		}
		t.lastRun[userID] = now
		delete(t.pending, userID)
		due = append(due, userID)
	}
	return due
}
