package ratelimit

import (
	"sync"
	"time"

	"SignalHub/pkg/clock"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Each key starts full.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	clk        clock.Clock
}

// New creates a limiter with the given bucket capacity and refill rate.
func New(capacity int, refillPerSec float64, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.Real()
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   float64(capacity),
		refillRate: refillPerSec,
		clk:        clk,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.clk.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Forget drops buckets idle for longer than maxIdle.
func (l *Limiter) Forget(maxIdle time.Duration) int {
	cutoff := l.clk.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
