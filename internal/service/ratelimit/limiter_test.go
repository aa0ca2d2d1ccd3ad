package ratelimit

import (
	"testing"
	"time"

	"SignalHub/pkg/clock"
)

func TestLimiterExhaustsAndRefills(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(2, 1, clk)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected first two requests to pass")
	}
	if l.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}

	clk.Advance(time.Second)
	if !l.Allow("a") {
		t.Fatalf("expected a token after refill")
	}
}

func TestLimiterForget(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(1, 1, clk)
	l.Allow("a")
	clk.Advance(time.Hour)
	if n := l.Forget(time.Minute); n != 1 {
		t.Fatalf("expected one bucket dropped, got %d", n)
	}
}
