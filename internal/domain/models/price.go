package models

import "time"

// CacheStatus tells the caller how fresh a price result is.
type CacheStatus string

const (
	CacheHit   CacheStatus = "HIT"
	CacheMiss  CacheStatus = "MISS"
	CacheStale CacheStatus = "STALE"
)

// PriceQuote is the latest observed price for a base symbol.
type PriceQuote struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// PriceMap maps canonical base symbols to prices.
type PriceMap map[string]float64

// PriceResult is what the aggregator returns for one request.
type PriceResult struct {
	Prices     PriceMap    `json:"prices"`
	Cache      CacheStatus `json:"cache"`
	Source     string      `json:"source"`
	ObservedAt time.Time   `json:"observed_at"`
}

// Age is how old the prices were at now.
func (r *PriceResult) Age(now time.Time) time.Duration {
	if r.ObservedAt.IsZero() || now.Before(r.ObservedAt) {
		return 0
	}
	return now.Sub(r.ObservedAt)
}

// Quotes flattens the map into quotes stamped with the observation time.
func (r *PriceResult) Quotes() []PriceQuote {
	out := make([]PriceQuote, 0, len(r.Prices))
	for sym, p := range r.Prices {
		out = append(out, PriceQuote{Symbol: sym, Price: p, ObservedAt: r.ObservedAt})
	}
	return out
}
