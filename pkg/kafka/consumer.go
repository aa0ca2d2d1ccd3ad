package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "SignalHub/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ErrPermanent marks a handler failure that retrying cannot fix. The message is committed.
var ErrPermanent = errors.New("permanent message failure")

// Permanent wraps err so the consumer commits instead of retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// reader is the subset of *kafka.Reader used by the consumer.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs one group reader per registered handler.
type Consumer struct {
	cfg      *ConsumerConfig
	handlers map[string]MessageHandler
	readers  map[string]reader
	log      *applogger.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "signalhub",
		MinBytes:   1,
		MaxBytes:   10e6,
		MaxWait:    500 * time.Millisecond,
		RetryMax:   3,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if log == nil {
		log = applogger.Nop()
	}

	registerConsumerMetrics()
	return &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]reader),
		log:      log,
	}, nil
}

// RegisterHandler registers a message handler for a specific topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start launches one reader loop per topic.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	for topic, handler := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
			MaxWait:  c.cfg.MaxWait,
		})
		c.readers[topic] = r
		c.wg.Add(1)
		go c.consume(ctx, r, handler)
		c.log.Info("kafka consumer started", applogger.String("topic", topic), applogger.String("group", c.cfg.GroupID))
	}
	return nil
}

// Stop stops the Kafka consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}
		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.log.Warn("kafka reader close failed", applogger.String("topic", topic), applogger.Error(err))
			}
		}
	})
	return stopErr
}

func (c *Consumer) consume(ctx context.Context, r reader, h MessageHandler) {
	defer c.wg.Done()
	topic := h.Topic()
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}

		result := c.handle(ctx, h, msg)
		consumerMsgsTotal.WithLabelValues(topic, result).Inc()
		if result == "aborted" {
			return
		}
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("kafka commit failed", applogger.String("topic", topic), applogger.Error(err))
		}
	}
}

// handle retries transient failures with exponential backoff.
func (c *Consumer) handle(ctx context.Context, h MessageHandler, msg kafka.Message) string {
	backoff := c.cfg.BackoffMin
	for attempt := 0; ; attempt++ {
		err := h.Handle(ctx, msg.Value)
		if err == nil {
			return "ok"
		}
		if errors.Is(err, ErrPermanent) {
			c.log.Warn("kafka message rejected",
				applogger.String("topic", msg.Topic),
				applogger.Int64("offset", msg.Offset),
				applogger.Error(err),
			)
			return "rejected"
		}
		if attempt >= c.cfg.RetryMax {
			c.log.Error("kafka message failed after retries",
				applogger.String("topic", msg.Topic),
				applogger.Int64("offset", msg.Offset),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return "failed"
		}
		if !sleepCtx(ctx, backoff) {
			return "aborted"
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var (
	consumerMsgsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalhub_kafka_consumer_messages_total",
			Help: "Messages consumed by outcome",
		},
		[]string{"topic", "result"},
	)
	consumerOnce sync.Once
)

func registerConsumerMetrics() {
	consumerOnce.Do(func() {
		prometheus.MustRegister(consumerMsgsTotal)
	})
}
