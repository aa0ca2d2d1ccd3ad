// Package prices serves current prices from a short-lived cache backed by
// an ordered chain of exchange sources.
package prices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/domain/repository"
	"SignalHub/pkg/clock"
	applogger "SignalHub/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Upstream is a quote source with its own deadline.
type Upstream struct {
	Source  repository.QuoteSource
	Timeout time.Duration
}

type universe struct {
	prices     models.PriceMap
	source     string
	observedAt time.Time
}

// Aggregator implements the price chain: primary, then secondary, with an
// optional tertiary merged in for symbols the first answer lacks.
type Aggregator struct {
	primary   Upstream
	secondary Upstream
	tertiary  *Upstream
	ttl       time.Duration
	defaults  []string
	clk       clock.Clock
	store     repository.PriceStore
	log       *applogger.Logger
	metrics   repository.Metrics

	mu     sync.RWMutex
	cached *universe
	group  singleflight.Group
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithTertiary(u Upstream) Option {
	return func(a *Aggregator) { a.tertiary = &u }
}

func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithDefaultSymbols(symbols []string) Option {
	return func(a *Aggregator) {
		if len(symbols) > 0 {
			a.defaults = normalize(symbols)
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.clk = c
		}
	}
}

// WithStore mirrors every successful fetch and reads it back when nothing is cached in process.
func WithStore(s repository.PriceStore) Option {
	return func(a *Aggregator) { a.store = s }
}

func WithLogger(l *applogger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator creates an aggregator over primary and secondary sources.
func NewAggregator(primary, secondary Upstream, opts ...Option) *Aggregator {
	a := &Aggregator{
		primary:   primary,
		secondary: secondary,
		ttl:       time.Second,
		defaults: []string{
			"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE",
			"AVAX", "LINK", "DOT", "MATIC", "MANA", "SAND",
		},
		clk: clock.Real(),
		log: applogger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultSymbols returns the set served for an empty request.
func (a *Aggregator) DefaultSymbols() []string {
	return append([]string(nil), a.defaults...)
}

// GetPrices returns prices for symbols, or the default set when symbols is empty.
// Symbols are normalised, so BTCUSDT and BTC are the same request.
// A fresh cache answers without touching upstream. When every source fails the
// last known prices are returned as STALE; ErrUpstreamUnavailable only when none exist.
func (a *Aggregator) GetPrices(ctx context.Context, symbols []string) (*models.PriceResult, error) {
	want := normalize(symbols)
	if len(want) == 0 {
		want = a.defaults
	}

	if u := a.fresh(a.clk.Now()); u != nil {
		a.record(u.source, models.CacheHit)
		return u.result(want, models.CacheHit), nil
	}

	v, err, _ := a.group.Do("prices", func() (interface{}, error) {
		return a.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	res := v.(*fetchResult)
	a.record(res.u.source, res.status)
	return res.u.result(want, res.status), nil
}

type fetchResult struct {
	u      *universe
	status models.CacheStatus
}

func (a *Aggregator) fresh(now time.Time) *universe {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.cached == nil || now.Sub(a.cached.observedAt) >= a.ttl {
		return nil
	}
	return a.cached
}

func (a *Aggregator) refresh(ctx context.Context) (*fetchResult, error) {
	// another flight may have landed while this caller waited
	if u := a.fresh(a.clk.Now()); u != nil {
		return &fetchResult{u: u, status: models.CacheHit}, nil
	}

	type tertiaryAnswer struct {
		prices models.PriceMap
		err    error
	}
	var tertiaryCh chan tertiaryAnswer
	if a.tertiary != nil {
		tertiaryCh = make(chan tertiaryAnswer, 1)
		go func() {
			p, err := a.fetch(ctx, *a.tertiary)
			tertiaryCh <- tertiaryAnswer{prices: p, err: err}
		}()
	}

	var (
		base   models.PriceMap
		source string
	)
	for _, up := range []Upstream{a.primary, a.secondary} {
		if up.Source == nil {
			continue
		}
		p, err := a.fetch(ctx, up)
		if err != nil {
			a.log.Warn("price source failed",
				applogger.String("source", up.Source.Name()),
				applogger.Error(err),
			)
			if a.metrics != nil {
				a.metrics.RecordError("price_source_" + up.Source.Name())
			}
			continue
		}
		base, source = p, up.Source.Name()
		break
	}

	if tertiaryCh != nil {
		ans := <-tertiaryCh
		switch {
		case ans.err != nil:
			a.log.Debug("optional price source failed",
				applogger.String("source", a.tertiary.Source.Name()),
				applogger.Error(ans.err),
			)
		case base == nil:
			base, source = ans.prices, a.tertiary.Source.Name()
		default:
			merged := make(models.PriceMap, len(base)+len(ans.prices))
			for k, v := range ans.prices {
				merged[k] = v
			}
			for k, v := range base {
				merged[k] = v
			}
			base = merged
		}
	}

	if base == nil {
		return a.stale(ctx)
	}

	u := &universe{prices: base, source: source, observedAt: a.clk.Now()}
	a.mu.Lock()
	a.cached = u
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Save(ctx, &models.PriceResult{Prices: base, Source: source, ObservedAt: u.observedAt}); err != nil {
			a.log.Warn("price store save failed", applogger.Error(err))
		}
	}
	return &fetchResult{u: u, status: models.CacheMiss}, nil
}

func (a *Aggregator) stale(ctx context.Context) (*fetchResult, error) {
	a.mu.RLock()
	u := a.cached
	a.mu.RUnlock()
	if u != nil {
		a.log.Warn("all price sources failed, serving stale prices",
			applogger.Duration("age_ms", a.clk.Now().Sub(u.observedAt)),
		)
		return &fetchResult{u: u, status: models.CacheStale}, nil
	}

	if a.store != nil {
		last, err := a.store.Load(ctx)
		if err == nil && last != nil && len(last.Prices) > 0 {
			a.log.Warn("all price sources failed, serving stored prices")
			return &fetchResult{
				u:      &universe{prices: last.Prices, source: last.Source, observedAt: last.ObservedAt},
				status: models.CacheStale,
			}, nil
		}
		if err != nil && !errors.Is(err, models.ErrNoStoredPrices) {
			a.log.Warn("price store load failed", applogger.Error(err))
		}
	}
	return nil, models.ErrUpstreamUnavailable
}

func (a *Aggregator) fetch(ctx context.Context, up Upstream) (models.PriceMap, error) {
	if up.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, up.Timeout)
		defer cancel()
	}
	start := time.Now()
	p, err := up.Source.Fetch(ctx)
	if a.metrics != nil {
		a.metrics.RecordLatency("price_fetch_"+up.Source.Name(), time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", up.Source.Name(), err)
	}
	return p, nil
}

func (a *Aggregator) record(source string, status models.CacheStatus) {
	if a.metrics != nil {
		a.metrics.RecordPriceFetch(source, string(status))
	}
}

func (u *universe) result(want []string, status models.CacheStatus) *models.PriceResult {
	out := make(models.PriceMap, len(want))
	for _, sym := range want {
		if p, ok := u.prices[sym]; ok {
			out[sym] = p
		}
	}
	return &models.PriceResult{
		Prices:     out,
		Cache:      status,
		Source:     u.source,
		ObservedAt: u.observedAt,
	}
}

func normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := models.NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
