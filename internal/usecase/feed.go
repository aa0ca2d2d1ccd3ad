package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	domrepo "SignalHub/internal/domain/repository"
	"SignalHub/internal/reconcile"
	"SignalHub/internal/schedule"
	"SignalHub/internal/state"
	"SignalHub/pkg/clock"
	applogger "SignalHub/pkg/logger"
)

// PriceProvider serves current prices.
type PriceProvider interface {
	GetPrices(ctx context.Context, symbols []string) (*models.PriceResult, error)
	DefaultSymbols() []string
}

// Feed drives the periodic events of the real-time channel and answers
// read-side queries that join signals with prices.
type Feed struct {
	store   *state.Store
	prices  PriceProvider
	oracle  *schedule.Oracle
	pub     Publisher
	clk     clock.Clock
	log     *applogger.Logger
	metrics domrepo.Metrics

	lastPrices atomic.Pointer[models.PriceResult]
	scanMu     sync.Mutex
	lastScan   *models.ScanStatus
}

func NewFeed(store *state.Store, prices PriceProvider, oracle *schedule.Oracle, pub Publisher, clk clock.Clock, log *applogger.Logger, metrics domrepo.Metrics) *Feed {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Feed{store: store, prices: prices, oracle: oracle, pub: pub, clk: clk, log: log, metrics: metrics}
}

// Initial builds the catch-up events for a new subscriber. It runs under the
// broker lock and only reads local state.
func (f *Feed) Initial() []broadcast.Event {
	events := make([]broadcast.Event, 0, 3)
	if ev, err := broadcast.NewEvent(broadcast.EventStateUpdate, f.store.Current()); err == nil {
		events = append(events, ev)
	} else {
		f.log.Error("encode initial snapshot failed", applogger.Error(err))
	}
	if f.oracle != nil {
		if ev, err := broadcast.NewEvent(broadcast.EventScanStatus, f.oracle.Status(f.clk.Now())); err == nil {
			events = append(events, ev)
		}
	}
	if p := f.lastPrices.Load(); p != nil {
		if ev, err := broadcast.NewEvent(broadcast.EventPrices, p); err == nil {
			events = append(events, ev)
		}
	}
	return events
}

// RefreshPrices warms the price cache for the default set plus every symbol
// with a visible signal, then publishes a prices event.
func (f *Feed) RefreshPrices(ctx context.Context, _ time.Time) {
	symbols := f.watchedSymbols()
	res, err := f.prices.GetPrices(ctx, symbols)
	if err != nil {
		if errors.Is(err, models.ErrUpstreamUnavailable) {
			f.log.Warn("price refresh skipped: no source available")
		} else {
			f.log.Error("price refresh failed", applogger.Error(err))
		}
		if f.metrics != nil {
			f.metrics.RecordError("price_refresh")
		}
		return
	}
	f.lastPrices.Store(res)
	if f.metrics != nil {
		for sym, p := range res.Prices {
			f.metrics.RecordLastPrice(sym, p)
		}
	}
	f.emit(broadcast.EventPrices, res)
}

// AnnounceScan publishes the scan status when any producer's window moved
// or its scanning flag flipped.
func (f *Feed) AnnounceScan(_ context.Context, now time.Time) {
	if f.oracle == nil {
		return
	}
	cur := f.oracle.Status(now)
	f.scanMu.Lock()
	changed := f.lastScan == nil || schedule.Changed(*f.lastScan, cur)
	if changed {
		f.lastScan = &cur
	}
	f.scanMu.Unlock()
	if changed {
		f.emit(broadcast.EventScanStatus, cur)
	}
}

// ScanStatus returns the oracle answer at the current time.
func (f *Feed) ScanStatus() models.ScanStatus {
	if f.oracle == nil {
		return models.ScanStatus{Producers: []models.ProducerScan{}, ServerTime: f.clk.Now().UTC()}
	}
	return f.oracle.Status(f.clk.Now())
}

// Live joins the current snapshot with prices. Missing prices never fail the
// call; rows are marked unavailable instead and the price result is nil.
func (f *Feed) Live(ctx context.Context) ([]models.LiveSignal, *models.PriceResult) {
	snap := f.store.Current()
	merged := reconcile.Merge(snap)
	symbols := make([]string, 0, len(merged))
	for _, s := range merged {
		symbols = append(symbols, s.Symbol)
	}

	var prices models.PriceMap
	var res *models.PriceResult
	if len(symbols) > 0 {
		r, err := f.prices.GetPrices(ctx, symbols)
		if err != nil {
			f.log.Warn("live view without prices", applogger.Error(err))
		} else {
			res, prices = r, r.Prices
		}
	}
	return reconcile.Reconcile(snap, prices), res
}

func (f *Feed) watchedSymbols() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range f.prices.DefaultSymbols() {
		add(s)
	}
	extra := make([]string, 0)
	for _, s := range f.store.Current().Signals() {
		if _, ok := seen[s.Symbol]; !ok {
			extra = append(extra, s.Symbol)
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		add(s)
	}
	return out
}

func (f *Feed) emit(t broadcast.EventType, data interface{}) {
	if f.pub == nil {
		return
	}
	ev, err := broadcast.NewEvent(t, data)
	if err != nil {
		f.log.Error("encode event failed", applogger.String("type", string(t)), applogger.Error(err))
		return
	}
	f.pub.Publish(ev)
}
