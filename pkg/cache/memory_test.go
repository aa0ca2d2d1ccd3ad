package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	clk := &fakeNow{t: time.Unix(0, 0)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clk.now))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "prices", map[string]float64{"BTC": 1}, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := GetTyped[map[string]float64](ctx, mc, "prices")
	if err != nil || got["BTC"] != 1 {
		t.Fatalf("get: %v %v", got, err)
	}

	clk.t = clk.t.Add(2 * time.Second)
	if _, err := GetTyped[map[string]float64](ctx, mc, "prices"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeNow{t: time.Unix(0, 0)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0), WithMemoryClock(clk.now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, 0)
	clk.t = clk.t.Add(time.Second)
	_ = mc.Set(ctx, "b", 2, 0)
	clk.t = clk.t.Add(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v)
	clk.t = clk.t.Add(time.Second)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", mc.Len())
	}
}

func TestLayeredCacheFillsL1FromRemote(t *testing.T) {
	remote := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	_ = remote.Set(ctx, "k", "v", 0)
	var got string
	if err := lc.Get(ctx, "k", &got); err != nil || got != "v" {
		t.Fatalf("get through layers: %q %v", got, err)
	}
	_ = remote.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("expected L1 hit after remote delete, got %v", err)
	}
}
