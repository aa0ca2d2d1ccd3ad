package scheduler

import (
	"context"
	"sync"
	"time"

	"SignalHub/pkg/clock"
)

// Job is invoked on every tick with the tick time.
type Job func(ctx context.Context, now time.Time)

type entry struct {
	name      string
	interval  time.Duration
	job       Job
	immediate bool
}

// Scheduler runs periodic jobs off an injectable clock.
type Scheduler struct {
	clk     clock.Clock
	entries []entry
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// JobOption configures a scheduled job.
type JobOption func(*entry)

// RunImmediately runs the job once at start before waiting for the first tick.
func RunImmediately() JobOption {
	return func(e *entry) { e.immediate = true }
}

// New creates a scheduler. A nil clock falls back to the real clock.
func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	return &Scheduler{clk: clk}
}

// Add registers a job. Jobs added after Start are ignored until the next Start.
func (s *Scheduler) Add(name string, interval time.Duration, job Job, opts ...JobOption) {
	e := entry{name: name, interval: interval, job: job}
	for _, opt := range opts {
		opt(&e)
	}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Names returns registered job names in registration order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.name)
	}
	return out
}

// Start launches one goroutine per job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		if e.interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go func(e entry) {
			defer s.wg.Done()
			if e.immediate {
				e.job(ctx, s.clk.Now())
			}
			Every(ctx, s.clk, e.interval, e.job)
		}(e)
	}
}

// Stop cancels all jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// Every blocks, calling job on each tick until ctx is done.
func Every(ctx context.Context, clk clock.Clock, interval time.Duration, job Job) {
	t := clk.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C():
			job(ctx, now)
		}
	}
}
