package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"

	"github.com/gorilla/websocket"
)

func TestDecodeEnvelopes(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"prices","data":{"prices":{"BTC":65000},"cache":"HIT","source":"binance-us"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Prices == nil || ev.Prices.Prices["BTC"] != 65000 || ev.Prices.Cache != models.CacheHit {
		t.Fatalf("unexpected event %+v", ev)
	}

	ev, err = Decode([]byte(`{"type":"heartbeat","data":{}}`))
	if err != nil || ev.Type != "heartbeat" || ev.Snapshot != nil {
		t.Fatalf("unknown type should pass through: %+v %v", ev, err)
	}

	if _, err := Decode([]byte(`{"type":"state-update","data":[]}`)); err == nil {
		t.Fatalf("expected decode error for bad snapshot")
	}
}

func TestClientReadsEvents(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		snap := models.EmptySnapshot()
		snap.Version = 7
		ev, _ := broadcast.NewEvent(broadcast.EventStateUpdate, snap)
		_ = conn.WriteMessage(websocket.TextMessage, ev.Payload)
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := New("ws"+strings.TrimPrefix(srv.URL, "http"), time.Millisecond, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	events, _ := c.Read(ctx)
	select {
	case ev := <-events:
		if ev.Snapshot == nil || ev.Snapshot.Version != 7 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("no event received")
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}
}
