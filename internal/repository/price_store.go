package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/domain/repository"
	"SignalHub/pkg/cache"
)

const lastPricesKey = "prices:last"

// CachePriceStore mirrors the last good price universe into a cache backend.
type CachePriceStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCachePriceStore creates a price store. ttl bounds how long a mirror survives without refresh.
func NewCachePriceStore(c cache.Service, ttl time.Duration) repository.PriceStore {
	return &CachePriceStore{cache: c, ttl: ttl}
}

func (s *CachePriceStore) Save(ctx context.Context, result *models.PriceResult) error {
	if result == nil || len(result.Prices) == 0 {
		return nil
	}
	if err := s.cache.Set(ctx, lastPricesKey, result, s.ttl); err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

func (s *CachePriceStore) Load(ctx context.Context) (*models.PriceResult, error) {
	var out models.PriceResult
	if err := s.cache.Get(ctx, lastPricesKey, &out); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrNoStoredPrices
		}
		return nil, fmt.Errorf("load prices: %w", err)
	}
	out.Cache = models.CacheStale
	return &out, nil
}
