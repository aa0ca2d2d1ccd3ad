// Package ws serves the real-time channel over WebSocket.
package ws

import (
	"net/http"
	"sync"
	"time"

	"SignalHub/internal/broadcast"
	xlogger "SignalHub/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPingPeriod = 30 * time.Second

	// maxMessageSize bounds inbound frames; the channel is push-only.
	maxMessageSize = 4096
)

// Hub bridges broker subscriptions to WebSocket connections.
type Hub struct {
	broker     *broadcast.Broker
	logger     *xlogger.Logger
	upgrader   websocket.Upgrader
	writeWait  time.Duration
	pingPeriod time.Duration
	pongWait   time.Duration
	wg         sync.WaitGroup
}

type Option func(*Hub)

// WithPingPeriod sets the keepalive interval. The pong deadline is derived from it.
func WithPingPeriod(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingPeriod = d
		}
	}
}

func WithWriteWait(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithAllowedOrigins restricts the upgrade to the given origins. Empty or "*" allows all.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			if o == "*" {
				return
			}
			allowed[o] = true
		}
		if len(allowed) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

func NewHub(broker *broadcast.Broker, logger *xlogger.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &Hub{
		broker:     broker,
		logger:     logger,
		writeWait:  defaultWriteWait,
		pingPeriod: defaultPingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pongWait = h.pingPeriod * 10 / 9
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	return h.broker.Count()
}

// Serve upgrades the request and streams broker events until either side goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}

	sub := h.broker.Subscribe()
	cl := &client{hub: h, conn: conn, sub: sub, remote: c.RealIP()}
	h.logger.Info("ws subscriber connected",
		xlogger.String("subscriber", sub.ID()),
		xlogger.String("remote", cl.remote),
		xlogger.Int("total", h.broker.Count()),
	)

	h.wg.Add(2)
	go cl.writePump()
	go cl.readPump()
	return nil
}

// Close blocks until every connection pump has exited. Close the broker first.
func (h *Hub) Close() error {
	h.wg.Wait()
	return nil
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	sub    *broadcast.Subscription
	remote string
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.broker.Unsubscribe(c.sub)
		_ = c.conn.Close()
		c.hub.logger.Info("ws subscriber disconnected",
			xlogger.String("subscriber", c.sub.ID()),
			xlogger.Uint64("dropped", c.sub.Dropped()),
			xlogger.Int("total", c.hub.broker.Count()),
		)
	})
}

// readPump only detects disconnects and services pongs.
func (c *client) readPump() {
	defer c.hub.wg.Done()
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws unexpected close",
					xlogger.String("subscriber", c.sub.ID()),
					xlogger.Error(err),
				)
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.hub.wg.Done()
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C():
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if !ok {
				code, reason := websocket.CloseNormalClosure, ""
				if c.sub.Evicted() {
					code, reason = websocket.CloseTryAgainLater, "subscriber too slow"
					c.hub.logger.Warn("ws subscriber evicted", xlogger.String("subscriber", c.sub.ID()))
				}
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, ev.Payload); err != nil {
				c.hub.logger.Warn("ws write failed",
					xlogger.String("subscriber", c.sub.ID()),
					xlogger.String("event", string(ev.Type)),
					xlogger.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
