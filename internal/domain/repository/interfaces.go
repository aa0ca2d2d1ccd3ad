package repository

import (
	"context"

	"SignalHub/internal/domain/models"
)

// QuoteSource fetches every USDT-quoted ticker an exchange lists, keyed by base symbol.
type QuoteSource interface {
	Name() string
	Fetch(ctx context.Context) (models.PriceMap, error)
}

// PriceStore keeps the last known good prices across restarts.
type PriceStore interface {
	Save(ctx context.Context, result *models.PriceResult) error
	Load(ctx context.Context) (*models.PriceResult, error)
}

// SignalSink forwards accepted signals to downstream consumers.
type SignalSink interface {
	Publish(ctx context.Context, s *models.Signal) error
	Close() error
}

// SignalStream consumes the real-time channel of a running hub.
type SignalStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan StreamEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// StreamEvent is one decoded envelope from the real-time channel.
type StreamEvent struct {
	Type     string
	Snapshot *models.Snapshot
	Prices   *models.PriceResult
	Scan     *models.ScanStatus
}

type Metrics interface {
	RecordSignalAccepted(source string)
	RecordSignalRejected(source, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPriceFetch(source, cache string)
	RecordLastPrice(symbol string, price float64)
	SetSubscribers(n int)
	RecordDroppedEvent(reason string)
}
