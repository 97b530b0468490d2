package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

func testClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestLockAcquireRelease(t *testing.T) {
	rdb, _ := testClient(t)
	l := NewLock(testLogger(t), rdb)
	ctx := context.Background()

	token, ok, err := l.Acquire(ctx, "user-1", time.Second, 0)
	if err != nil || !ok {
		t.Fatalf("first acquire failed: ok=%v err=%v", ok, err)
	}

	if _, ok, _ := l.Acquire(ctx, "user-1", time.Second, 0); ok {
		t.Fatal("second acquire on a held key must fail without wait")
	}
	if _, ok, err := l.Acquire(ctx, "user-2", time.Second, 0); !ok || err != nil {
		t.Fatalf("different key must be independent: ok=%v err=%v", ok, err)
	}

	if err := l.Release(ctx, "user-1", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, err := l.Acquire(ctx, "user-1", time.Second, 0); !ok || err != nil {
		t.Fatalf("reacquire after release failed: ok=%v err=%v", ok, err)
	}
}

func TestLockBoundedWait(t *testing.T) {
	rdb, _ := testClient(t)
	l := NewLock(testLogger(t), rdb)
	ctx := context.Background()

	if _, ok, err := l.Acquire(ctx, "busy", time.Minute, 0); !ok || err != nil {
		t.Fatalf("seed acquire failed: ok=%v err=%v", ok, err)
	}

	start := time.Now()
	_, ok, err := l.Acquire(ctx, "busy", time.Minute, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("bounded acquire errored: %v", err)
	}
	if ok {
		t.Fatal("acquire on a held key should time out, not succeed")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("acquire waited %v, expected to give up near the budget", elapsed)
	}
}

func TestLockWaiterGetsKeyOnRelease(t *testing.T) {
	rdb, _ := testClient(t)
	l := NewLock(testLogger(t), rdb)
	ctx := context.Background()

	token, ok, err := l.Acquire(ctx, "handoff", time.Minute, 0)
	if !ok || err != nil {
		t.Fatalf("seed acquire failed: ok=%v err=%v", ok, err)
	}

	got := make(chan bool, 1)
	go func() {
		_, ok, _ := l.Acquire(ctx, "handoff", time.Minute, 2*time.Second)
		got <- ok
	}()

	time.Sleep(100 * time.Millisecond)
	if err := l.Release(ctx, "handoff", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !<-got {
		t.Fatal("waiter should acquire the key after release")
	}
}

func TestReleaseIsTokenChecked(t *testing.T) {
	rdb, mr := testClient(t)
	l := NewLock(testLogger(t), rdb)
	ctx := context.Background()

	token, ok, err := l.Acquire(ctx, "guarded", time.Minute, 0)
	if !ok || err != nil {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// A stale holder's token must not release someone else's lock.
	if err := l.Release(ctx, "guarded", "not-the-token"); err != nil {
		t.Fatalf("foreign release errored: %v", err)
	}
	if !mr.Exists("lock:profile:guarded") {
		t.Fatal("foreign token deleted the lock")
	}

	if err := l.Release(ctx, "guarded", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Releasing an already-released lock is a no-op.
	if err := l.Release(ctx, "guarded", token); err != nil {
		t.Fatalf("double release errored: %v", err)
	}
}

func TestLockExpiresByTTL(t *testing.T) {
	rdb, mr := testClient(t)
	l := NewLock(testLogger(t), rdb)
	ctx := context.Background()

	if _, ok, err := l.Acquire(ctx, "ttl", 500*time.Millisecond, 0); !ok || err != nil {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	mr.FastForward(time.Second)
	if _, ok, err := l.Acquire(ctx, "ttl", time.Second, 0); !ok || err != nil {
		t.Fatalf("expired lock should be reacquirable: ok=%v err=%v", ok, err)
	}
}
