package reconcile

import (
	"math"
	"testing"
	"time"

	"SignalHub/internal/domain/models"
)

func snapWith(src models.Source, sigs ...models.Signal) *models.Snapshot {
	s := models.EmptySnapshot()
	for i := range sigs {
		sigs[i].Source = src
	}
	s.Sources[src] = &models.SourceState{Source: src, Status: models.StatusActive, Signals: sigs}
	return s
}

func TestMergeLaterOccurrenceWins(t *testing.T) {
	at := time.Unix(1000, 0)
	s := snapWith(models.SourceShortHunter,
		models.Signal{Symbol: "BTC/USDT:USDT", Side: models.SideShort, EntryPrice: 100, EntryTime: at},
		models.Signal{Symbol: "BTCUSDT", Side: models.SideShort, EntryPrice: 101, EntryTime: at},
	)
	got := Merge(s)
	if len(got) != 1 {
		t.Fatalf("expected one merged signal, got %d", len(got))
	}
	if got[0].EntryPrice != 101 {
		t.Fatalf("later occurrence should win, got %v", got[0].EntryPrice)
	}
}

func TestMergeKeepsSameSymbolFromDifferentSources(t *testing.T) {
	at := time.Unix(1000, 0)
	s := snapWith(models.SourceShortHunter, models.Signal{Symbol: "ETH", EntryTime: at})
	s.Sources[models.SourceTradingView] = &models.SourceState{
		Source:  models.SourceTradingView,
		Signals: []models.Signal{{Symbol: "ETH", EntryTime: at, Source: models.SourceTradingView}},
	}
	if got := Merge(s); len(got) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(got))
	}
}

func TestLookupPriceTiers(t *testing.T) {
	prices := models.PriceMap{"ETH": 3100, "SOLUSDT": 150, "1000PEPE": 0.01, "WBTC": 60000}
	if p, ok := LookupPrice(prices, "ETH-USDT-SWAP"); !ok || p != 3100 {
		t.Fatalf("exact tier failed: %v %v", p, ok)
	}
	if p, ok := LookupPrice(prices, "SOL"); !ok || p != 150 {
		t.Fatalf("USDT tier failed: %v %v", p, ok)
	}
	if p, ok := LookupPrice(prices, "PEPE"); !ok || p != 0.01 {
		t.Fatalf("substring tier failed: %v %v", p, ok)
	}
	if _, ok := LookupPrice(prices, "XRP"); ok {
		t.Fatalf("expected miss")
	}
}

func TestReconcilePnL(t *testing.T) {
	at := time.Unix(1000, 0)
	s := snapWith(models.SourceTradingView,
		models.Signal{Symbol: "ETH", Side: models.SideLong, EntryPrice: 3000, EntryTime: at},
		models.Signal{Symbol: "BTC", Side: models.SideShort, EntryPrice: 50000, EntryTime: at.Add(time.Minute)},
		models.Signal{Symbol: "DOGE", Side: models.SideLong, EntryPrice: 0.1, EntryTime: at.Add(-time.Minute)},
	)
	rows := Reconcile(s, models.PriceMap{"ETH": 3150, "BTC": 49000})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Symbol != "BTC" || rows[1].Symbol != "ETH" || rows[2].Symbol != "DOGE" {
		t.Fatalf("expected newest first, got %s %s %s", rows[0].Symbol, rows[1].Symbol, rows[2].Symbol)
	}
	if math.Abs(rows[0].PnLPercent-2) > 1e-9 {
		t.Fatalf("SHORT pnl expected 2, got %v", rows[0].PnLPercent)
	}
	if math.Abs(rows[1].PnLPercent-5) > 1e-9 {
		t.Fatalf("LONG pnl expected 5, got %v", rows[1].PnLPercent)
	}
	if rows[2].PriceAvailable || rows[2].PnLPercent != 0 {
		t.Fatalf("missing price should be flagged, got %+v", rows[2])
	}
}

func TestViewIgnoresOlderSnapshot(t *testing.T) {
	v := NewView()
	newer := snapWith(models.SourceManual, models.Signal{Symbol: "BTC", EntryTime: time.Unix(2, 0)})
	newer.Version = 5
	older := snapWith(models.SourceManual)
	older.Version = 4

	if !v.ApplySnapshot(newer) {
		t.Fatalf("expected newer snapshot applied")
	}
	if v.ApplySnapshot(older) {
		t.Fatalf("older snapshot must be ignored")
	}
	v.ApplyPrices(models.PriceMap{"BTC": 10})
	rows := v.Rows()
	if len(rows) != 1 || !rows[0].PriceAvailable {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
