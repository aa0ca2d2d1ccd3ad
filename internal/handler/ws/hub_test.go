package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	"SignalHub/internal/state"
	"SignalHub/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type fixture struct {
	broker   *broadcast.Broker
	hub      *Hub
	ingestor *usecase.Ingestor
	server   *httptest.Server
}

func newFixture(t *testing.T, opts ...broadcast.Option) *fixture {
	t.Helper()
	store := state.NewStore()
	broker := broadcast.NewBroker(opts...)
	ing := usecase.NewIngestor(store, broker)
	feed := usecase.NewFeed(store, nil, nil, broker, nil, nil, nil)
	broker.SetInitial(feed.Initial)

	e := echo.New()
	hub := NewHub(broker, nil)
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		broker.Close()
		srv.Close()
	})
	return &fixture{broker: broker, hub: hub, ingestor: ing, server: srv}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *fixture) post(t *testing.T, symbol string) {
	t.Helper()
	if _, err := f.ingestor.Accept(context.Background(), "tradingview", models.SignalRequest{
		Symbol: symbol, Side: "LONG", EntryPrice: 100,
	}); err != nil {
		t.Fatalf("accept %s: %v", symbol, err)
	}
}

func readSnapshot(t *testing.T, conn *websocket.Conn) models.Snapshot {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env broadcast.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Type != broadcast.EventStateUpdate {
			continue
		}
		var snap models.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		return snap
	}
}

func TestSubscriberReceivesCurrentStateThenUpdates(t *testing.T) {
	f := newFixture(t)
	f.post(t, "BTC")
	f.post(t, "ETH")
	f.post(t, "SOL")

	conn := f.dial(t)
	first := readSnapshot(t, conn)
	if n := len(first.Sources[models.SourceTradingView].Signals); n != 3 {
		t.Fatalf("expected 3 signals on connect, got %d", n)
	}

	f.post(t, "DOGE")
	next := readSnapshot(t, conn)
	signals := next.Sources[models.SourceTradingView].Signals
	if len(signals) != 4 || signals[3].Symbol != "DOGE" {
		t.Fatalf("expected pushed update with DOGE, got %+v", signals)
	}
	if next.Version <= first.Version {
		t.Fatalf("version went backwards: %d -> %d", first.Version, next.Version)
	}
}

func TestSubscriberCountTracksConnections(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	_ = readSnapshot(t, conn)
	if got := f.broker.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.broker.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDialAfterBrokerCloseIsRejected(t *testing.T) {
	f := newFixture(t)
	f.broker.Close()

	conn := f.dial(t)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	if n := f.broker.Count(); n != 0 {
		t.Fatalf("expected no subscribers after close, got %d", n)
	}

	done := make(chan struct{})
	go func() {
		_ = f.hub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub close blocked on a late subscriber")
	}
}
