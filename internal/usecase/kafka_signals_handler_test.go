package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalHub/internal/state"
	pkgkafka "SignalHub/pkg/kafka"
)

func TestKafkaSignalsHandlerAccepts(t *testing.T) {
	store := state.NewStore()
	h := NewKafkaSignalsHandler("signals.inbound", NewIngestor(store, nil), nil)

	msg := []byte(`{"source":"bounty_seeker","signal":{"symbol":"ETHUSDT","side":"LONG","entry_price":"3000"}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Current().Signals(); len(got) != 1 || got[0].Symbol != "ETH" {
		t.Fatalf("signal not ingested: %+v", got)
	}
}

func TestKafkaSignalsHandlerInvalidIsPermanent(t *testing.T) {
	h := NewKafkaSignalsHandler("signals.inbound", NewIngestor(state.NewStore(), nil), nil)

	for _, msg := range []string{`not json`, `{"source":"manual","signal":{"side":"LONG"}}`} {
		err := h.Handle(context.Background(), []byte(msg))
		if !errors.Is(err, pkgkafka.ErrPermanent) {
			t.Fatalf("%s: expected permanent error, got %v", msg, err)
		}
	}
}
