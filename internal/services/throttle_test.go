package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestThrottleAllowStampsWindow(t *testing.T) {
	th := NewLearningThrottle(time.Minute)
	user := uuid.New()

	if !th.Allow(user) {
		t.Fatal("first call must be allowed")
	}
	if th.Allow(user) {
		t.Fatal("second call inside the window must be throttled")
	}
	if !th.Allow(uuid.New()) {
		t.Fatal("windows are per user")
	}
}

func TestThrottleAllowAfterWindowExpires(t *testing.T) {
	th := NewLearningThrottle(time.Minute)
	user := uuid.New()

	base := time.Now()
	th.now = func() time.Time { return base }
	if !th.Allow(user) {
		t.Fatal("first call must be allowed")
	}

	th.now = func() time.Time { return base.Add(61 * time.Second) }
	if !th.Allow(user) {
		t.Fatal("call after the window must be allowed")
	}
}

func TestTakeDueDrainsOnlyExpired(t *testing.T) {
	th := NewLearningThrottle(time.Minute)
	hot := uuid.New()
	cold := uuid.New()

	base := time.Now()
	th.now = func() time.Time { return base }
	th.Allow(hot)
	th.Accumulate(hot)
	th.Accumulate(cold)

	if due := th.TakeDue(); len(due) != 1 || due[0] != cold {
		t.Fatalf("only the user without an open window is due, got %v", due)
	}

	th.now = func() time.Time { return base.Add(2 * time.Minute) }
	if due := th.TakeDue(); len(due) != 1 || due[0] != hot {
		t.Fatalf("expired window should become due, got %v", due)
	}
	if due := th.TakeDue(); len(due) != 0 {
		t.Fatalf("drained users must not be due again, got %v", due)
	}
}

func TestThrottleConcurrentAccess(t *testing.T) {
	th := NewLearningThrottle(time.Minute)
	user := uuid.New()

	var wg sync.WaitGroup
	allowed := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Allow(user) {
				allowed <- true
			} else {
				th.Accumulate(user)
			}
		}()
	}
	wg.Wait()
	close(allowed)

	if n := len(allowed); n != 1 {
		t.Fatalf("exactly one concurrent caller should pass the gate, got %d", n)
	}
	if th.Pending(user) != 31 {
		t.Fatalf("expected 31 accumulated edits, got %d", th.Pending(user))
	}
}
