package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != "v" {
		t.Fatalf("got %q, want %q", val, "v")
	}
}

func TestMemoryExpiresByTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, err := m.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected the entry to have expired, got ok=%v err=%v", ok, err)
	}
}

func TestNewPicksMemoryWithoutRedisURL(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("expected a *Memory cache when redisURL is empty, got %T", c)
	}
}
