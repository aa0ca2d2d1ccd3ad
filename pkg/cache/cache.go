package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are JSON encoded.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// GetTyped retrieves key and decodes it into a new T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	return v, err
}
