package usecase

import (
	"testing"

	"SignalHub/internal/domain/models"
	drepo "SignalHub/internal/domain/repository"
)

func TestWatcherAppliesEventsInVersionOrder(t *testing.T) {
	var last []models.LiveSignal
	w := NewWatcher(nil, nil, func(rows []models.LiveSignal, _ *models.ScanStatus) { last = rows })

	snap := func(version uint64, symbols ...string) *models.Snapshot {
		s := models.EmptySnapshot()
		s.Version = version
		st := &models.SourceState{Source: models.SourceManual, Status: models.StatusActive}
		for _, sym := range symbols {
			st.Signals = append(st.Signals, models.Signal{Symbol: sym, Side: models.SideLong, EntryPrice: 100, Source: models.SourceManual})
		}
		s.Sources[models.SourceManual] = st
		return s
	}

	w.Apply(drepo.StreamEvent{Type: "state-update", Snapshot: snap(2, "BTC", "ETH")})
	w.Apply(drepo.StreamEvent{Type: "state-update", Snapshot: snap(1, "BTC")})
	if len(w.Rows()) != 2 {
		t.Fatalf("older snapshot must be ignored, got %d rows", len(w.Rows()))
	}

	w.Apply(drepo.StreamEvent{Type: "prices", Prices: &models.PriceResult{Prices: models.PriceMap{"BTC": 105}}})
	var btc models.LiveSignal
	for _, r := range last {
		if r.Symbol == "BTC" {
			btc = r
		}
	}
	if !btc.PriceAvailable || btc.PnLPercent != 5 {
		t.Fatalf("unexpected BTC row %+v", btc)
	}
}
