// Package stream consumes the real-time channel of a running hub.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	drepo "SignalHub/internal/domain/repository"
	applogger "SignalHub/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements SignalStream over WebSocket.
type Client struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

// New creates a stream client for a hub's /ws endpoint.
func New(url string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) drepo.SignalStream {
	if log == nil {
		log = applogger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.log.Info("stream connected", applogger.String("url", c.url))
	return nil
}

// Read streams decoded events and errors for the current connection.
// Both channels close when the connection fails or ctx is done.
func (c *Client) Read(ctx context.Context) (<-chan drepo.StreamEvent, <-chan error) {
	events := make(chan drepo.StreamEvent, 64)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	done := make(chan struct{})
	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		defer close(done)
		if conn == nil {
			errs <- fmt.Errorf("stream not connected")
			return
		}
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				c.connected.Store(false)
				if ctx.Err() == nil {
					errs <- fmt.Errorf("stream read: %w", err)
				}
				return
			}
			ev, err := Decode(b)
			if err != nil {
				c.log.Debug("stream frame skipped", applogger.Error(err))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected.Store(false)
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Decode turns one envelope into a typed event. Unknown types decode with only Type set.
func Decode(b []byte) (drepo.StreamEvent, error) {
	var env broadcast.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return drepo.StreamEvent{}, fmt.Errorf("decode envelope: %w", err)
	}
	ev := drepo.StreamEvent{Type: string(env.Type)}
	var err error
	switch env.Type {
	case broadcast.EventStateUpdate:
		ev.Snapshot = &models.Snapshot{}
		err = json.Unmarshal(env.Data, ev.Snapshot)
	case broadcast.EventPrices:
		ev.Prices = &models.PriceResult{}
		err = json.Unmarshal(env.Data, ev.Prices)
	case broadcast.EventScanStatus:
		ev.Scan = &models.ScanStatus{}
		err = json.Unmarshal(env.Data, ev.Scan)
	}
	if err != nil {
		return drepo.StreamEvent{}, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}
