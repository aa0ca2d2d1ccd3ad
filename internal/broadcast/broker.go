// Package broadcast fans events out to subscribers with bounded queues.
package broadcast

import (
	"sync"
	"sync/atomic"

	"SignalHub/internal/domain/repository"
	applogger "SignalHub/pkg/logger"

	"github.com/google/uuid"
)

// OverflowPolicy decides what happens when a subscriber queue is full.
type OverflowPolicy string

const (
	DropOldest OverflowPolicy = "drop_oldest"
	Disconnect OverflowPolicy = "disconnect"
)

const DefaultQueueSize = 16

// InitialFunc returns the events a new subscriber receives before any live event.
type InitialFunc func() []Event

// Subscription is one subscriber's bounded queue.
type Subscription struct {
	id      string
	ch      chan Event
	closed  bool
	dropped atomic.Uint64
	evicted atomic.Bool
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// C delivers events in publish order. It is closed on Unsubscribe, broker
// shutdown, or eviction under the disconnect policy.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped counts events discarded under the drop_oldest policy.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Evicted reports whether the broker closed the subscription for falling behind.
func (s *Subscription) Evicted() bool { return s.evicted.Load() }

// Broker publishes events to every subscriber without blocking on slow ones.
type Broker struct {
	mu        sync.Mutex
	subs      map[string]*Subscription
	queueSize int
	policy    OverflowPolicy
	initial   InitialFunc
	log       *applogger.Logger
	metrics   repository.Metrics
	closed    bool
}

// Option configures a Broker.
type Option func(*Broker)

func WithQueueSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(b *Broker) {
		if p == DropOldest || p == Disconnect {
			b.policy = p
		}
	}
}

// WithInitial sets the provider of catch-up events for new subscribers.
// It runs under the broker lock, so it must not call back into the broker.
func WithInitial(fn InitialFunc) Option {
	return func(b *Broker) { b.initial = fn }
}

func WithLogger(l *applogger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(b *Broker) { b.metrics = m }
}

// NewBroker creates a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:      make(map[string]*Subscription),
		queueSize: DefaultQueueSize,
		policy:    DropOldest,
		log:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetInitial replaces the catch-up provider.
func (b *Broker) SetInitial(fn InitialFunc) {
	b.mu.Lock()
	b.initial = fn
	b.mu.Unlock()
}

// Subscribe registers a subscriber and queues the current catch-up events.
// Any event published after Subscribe returns is delivered after them.
// After Close the returned subscription is already closed.
func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan Event, b.queueSize),
	}
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	if b.initial != nil {
		for _, ev := range b.initial() {
			b.deliver(sub, ev)
		}
	}
	if !sub.closed {
		b.subs[sub.id] = sub
	}
	b.reportSubscribers()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call more than once.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(sub)
	b.reportSubscribers()
}

// Publish enqueues ev for every subscriber. It never blocks.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	evicted := false
	for _, sub := range b.subs {
		b.deliver(sub, ev)
		evicted = evicted || sub.closed
	}
	if evicted {
		b.reportSubscribers()
	}
}

// Count returns the number of live subscribers.
func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close removes every subscriber and refuses new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, sub := range b.subs {
		b.remove(sub)
	}
	b.reportSubscribers()
}

// deliver must be called with b.mu held.
func (b *Broker) deliver(sub *Subscription, ev Event) {
	if sub.closed {
		return
	}
	select {
	case sub.ch <- ev:
		return
	default:
	}

	if b.policy == Disconnect {
		sub.evicted.Store(true)
		b.remove(sub)
		b.log.Warn("subscriber evicted: queue full",
			applogger.String("subscriber", sub.id),
			applogger.String("event", string(ev.Type)),
		)
		if b.metrics != nil {
			b.metrics.RecordDroppedEvent("disconnect")
		}
		return
	}

	select {
	case <-sub.ch:
		sub.dropped.Add(1)
		if b.metrics != nil {
			b.metrics.RecordDroppedEvent("drop_oldest")
		}
	default:
	}
	select {
	case sub.ch <- ev:
	default:
	}
}

// remove must be called with b.mu held.
func (b *Broker) remove(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub.id)
	close(sub.ch)
}

func (b *Broker) reportSubscribers() {
	if b.metrics != nil {
		b.metrics.SetSubscribers(len(b.subs))
	}
}
