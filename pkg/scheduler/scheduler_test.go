package scheduler

import (
	"context"
	"testing"
	"time"

	"SignalHub/pkg/clock"
)

func TestSchedulerRunsJobOnTick(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC))
	s := New(clk)

	ticks := make(chan time.Time, 4)
	s.Add("probe", time.Second, func(_ context.Context, now time.Time) { ticks <- now })
	s.Start(context.Background())
	defer s.Stop()

	if !clk.WaitForTickers(1, time.Second) {
		t.Fatalf("ticker not registered")
	}
	clk.Advance(time.Second)

	select {
	case got := <-ticks:
		if !got.Equal(clk.Now()) {
			t.Fatalf("unexpected tick %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not run")
	}
}

func TestSchedulerRunImmediately(t *testing.T) {
	clk := clock.NewFake(time.Unix(100, 0))
	s := New(clk)

	ran := make(chan struct{}, 1)
	s.Add("warm", time.Hour, func(context.Context, time.Time) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}, RunImmediately())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("immediate job did not run")
	}
	if names := s.Names(); len(names) != 1 || names[0] != "warm" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := New(nil)
	s.Add("noop", time.Minute, func(context.Context, time.Time) {})
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
