package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	"SignalHub/internal/schedule"
	"SignalHub/internal/state"
	"SignalHub/pkg/clock"
)

type stubPrices struct {
	prices   models.PriceMap
	err      error
	requests [][]string
}

func (s *stubPrices) GetPrices(_ context.Context, symbols []string) (*models.PriceResult, error) {
	s.requests = append(s.requests, symbols)
	if s.err != nil {
		return nil, s.err
	}
	return &models.PriceResult{Prices: s.prices, Cache: models.CacheMiss, Source: "binance-us"}, nil
}

func (s *stubPrices) DefaultSymbols() []string { return []string{"BTC", "ETH"} }

func eventTypes(events []broadcast.Event) []broadcast.EventType {
	out := make([]broadcast.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestFeedRefreshPricesWatchesSignalSymbols(t *testing.T) {
	store := state.NewStore()
	pub := &recordingPublisher{}
	prices := &stubPrices{prices: models.PriceMap{"BTC": 65000}}
	ing := NewIngestor(store, nil)
	_, _ = ing.Accept(context.Background(), "manual", models.SignalRequest{Symbol: "PEPEUSDT", Side: "LONG", EntryPrice: 1})

	feed := NewFeed(store, prices, nil, pub, nil, nil, nil)
	feed.RefreshPrices(context.Background(), time.Now())

	if len(prices.requests) != 1 {
		t.Fatalf("expected one price request")
	}
	want := []string{"BTC", "ETH", "PEPE"}
	got := prices.requests[0]
	if len(got) != len(want) {
		t.Fatalf("symbols = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("symbols = %v, want %v", got, want)
		}
	}
	if types := eventTypes(pub.events); len(types) != 1 || types[0] != broadcast.EventPrices {
		t.Fatalf("unexpected events %v", types)
	}

	initial := eventTypes(feed.Initial())
	if len(initial) != 2 || initial[0] != broadcast.EventStateUpdate || initial[1] != broadcast.EventPrices {
		t.Fatalf("unexpected initial events %v", initial)
	}
}

func TestFeedRefreshPricesFailureIsQuiet(t *testing.T) {
	pub := &recordingPublisher{}
	feed := NewFeed(state.NewStore(), &stubPrices{err: models.ErrUpstreamUnavailable}, nil, pub, nil, nil, nil)
	feed.RefreshPrices(context.Background(), time.Now())
	if len(pub.events) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestFeedAnnounceScanOnlyOnChange(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 10, 10, 10, 5, 0, 0, time.UTC))
	oracle := schedule.NewOracle(map[string]int{"short_hunter": 15}, 30*time.Second)
	pub := &recordingPublisher{}
	feed := NewFeed(state.NewStore(), &stubPrices{}, oracle, pub, clk, nil, nil)

	feed.AnnounceScan(context.Background(), clk.Now())
	clk.Advance(time.Second)
	feed.AnnounceScan(context.Background(), clk.Now())
	if len(pub.events) != 1 {
		t.Fatalf("expected a single announcement, got %d", len(pub.events))
	}

	// 10:14:31 is inside the 30s lead of the 10:15 boundary
	clk.Set(time.Date(2024, 10, 10, 10, 14, 31, 0, time.UTC))
	feed.AnnounceScan(context.Background(), clk.Now())
	if len(pub.events) != 2 {
		t.Fatalf("scanning flip not announced")
	}
	var env struct {
		Data models.ScanStatus `json:"data"`
	}
	if err := json.Unmarshal(pub.events[1].Payload, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.Producers[0].IsScanning {
		t.Fatalf("expected scanning status %+v", env.Data)
	}

	initial := eventTypes(feed.Initial())
	if len(initial) != 2 || initial[1] != broadcast.EventScanStatus {
		t.Fatalf("unexpected initial events %v", initial)
	}
}

func TestFeedLiveComputesPnL(t *testing.T) {
	store := state.NewStore()
	ing := NewIngestor(store, nil)
	_, _ = ing.Accept(context.Background(), "tradingview", models.SignalRequest{Symbol: "BTC", Side: "LONG", EntryPrice: 100})
	_, _ = ing.Accept(context.Background(), "tradingview", models.SignalRequest{Symbol: "XYZ", Side: "SHORT", EntryPrice: 10})

	feed := NewFeed(store, &stubPrices{prices: models.PriceMap{"BTC": 110}}, nil, nil, nil, nil, nil)
	rows, res := feed.Live(context.Background())
	if res == nil || len(rows) != 2 {
		t.Fatalf("unexpected live view %+v %+v", rows, res)
	}
	bySymbol := map[string]models.LiveSignal{}
	for _, r := range rows {
		bySymbol[r.Symbol] = r
	}
	if r := bySymbol["BTC"]; !r.PriceAvailable || !approx(r.PnLPercent, 10) {
		t.Fatalf("unexpected BTC row %+v", r)
	}
	if r := bySymbol["XYZ"]; r.PriceAvailable {
		t.Fatalf("XYZ should have no price %+v", r)
	}
}

func TestFeedLiveWithoutPrices(t *testing.T) {
	store := state.NewStore()
	_, _ = NewIngestor(store, nil).Accept(context.Background(), "manual", models.SignalRequest{Symbol: "BTC", Side: "LONG", EntryPrice: 1})
	feed := NewFeed(store, &stubPrices{err: models.ErrUpstreamUnavailable}, nil, nil, nil, nil, nil)
	rows, res := feed.Live(context.Background())
	if res != nil || len(rows) != 1 || rows[0].PriceAvailable {
		t.Fatalf("unexpected live view %+v %+v", rows, res)
	}
}
