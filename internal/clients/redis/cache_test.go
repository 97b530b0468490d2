package redis

import (
	"context"
	"testing"
	"time"
)

type cachedValue struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func TestCacheRoundTrip(t *testing.T) {
	rdb, _ := testClient(t)
	c := NewCache(testLogger(t), rdb)
	ctx := context.Background()

	var out cachedValue
	hit, err := c.Get(ctx, "analytics:user:a", &out)
	if err != nil {
		t.Fatalf("get on empty cache: %v", err)
	}
	if hit {
		t.Fatal("empty cache must miss")
	}

	in := cachedValue{Score: 42, Note: "warm"}
	if err := c.Set(ctx, "analytics:user:a", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err = c.Get(ctx, "analytics:user:a", &out)
	if err != nil || !hit {
		t.Fatalf("get after set: hit=%v err=%v", hit, err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestCacheInvalidateIsIdempotent(t *testing.T) {
	rdb, _ := testClient(t)
	c := NewCache(testLogger(t), rdb)
	ctx := context.Background()

	if err := c.Set(ctx, "k", cachedValue{Score: 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	var out cachedValue
	if hit, _ := c.Get(ctx, "k", &out); hit {
		t.Fatal("get after invalidate must miss")
	}
	// Invalidating an absent key is a no-op.
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

func TestCacheExpiresByTTL(t *testing.T) {
	rdb, mr := testClient(t)
	c := NewCache(testLogger(t), rdb)
	ctx := context.Background()

	if err := c.Set(ctx, "ttl", cachedValue{Score: 7}, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	var out cachedValue
	if hit, _ := c.Get(ctx, "ttl", &out); hit {
		t.Fatal("entry should expire with its TTL")
	}
}

func TestCacheCorruptEntryIsAMiss(t *testing.T) {
	rdb, mr := testClient(t)
	c := NewCache(testLogger(t), rdb)
	ctx := context.Background()

	mr.Set("bad", "{not json")

	var out cachedValue
	hit, err := c.Get(ctx, "bad", &out)
	if err != nil {
		t.Fatalf("corrupt entry should not error: %v", err)
	}
	if hit {
		t.Fatal("corrupt entry must read as a miss")
	}
	if mr.Exists("bad") {
		t.Fatal("corrupt entry should be dropped")
	}
}
