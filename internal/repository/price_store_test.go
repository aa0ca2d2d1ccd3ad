package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/pkg/cache"
)

func TestCachePriceStoreRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	store := NewCachePriceStore(mc, time.Hour)
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, models.ErrNoStoredPrices) {
		t.Fatalf("expected ErrNoStoredPrices, got %v", err)
	}

	at := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	in := &models.PriceResult{Prices: models.PriceMap{"BTC": 60000}, Source: "binance-us", ObservedAt: at, Cache: models.CacheMiss}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Prices["BTC"] != 60000 || got.Source != "binance-us" || !got.ObservedAt.Equal(at) {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Cache != models.CacheStale {
		t.Fatalf("stored prices must be flagged stale, got %s", got.Cache)
	}
}
