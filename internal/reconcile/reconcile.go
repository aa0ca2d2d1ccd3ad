// Package reconcile merges per-source signal sets and joins them with prices.
package reconcile

import (
	"sort"
	"strings"
	"sync"

	"SignalHub/internal/domain/models"
)

// Merge flattens a snapshot into one de-duplicated list. Identity is
// (source, canonical symbol, entry time); the later occurrence wins.
// Sources are visited in models.Sources order, then any others by name.
func Merge(snap *models.Snapshot) []models.Signal {
	if snap == nil {
		return nil
	}
	order := sourceOrder(snap)

	index := make(map[models.Key]int)
	var out []models.Signal
	for _, src := range order {
		st := snap.Sources[src]
		if st == nil {
			continue
		}
		for _, sig := range st.Signals {
			if sig.Source == "" {
				sig.Source = src
			}
			k := sig.Key()
			if i, ok := index[k]; ok {
				out[i] = sig
				continue
			}
			index[k] = len(out)
			out = append(out, sig)
		}
	}
	return out
}

func sourceOrder(snap *models.Snapshot) []models.Source {
	order := make([]models.Source, 0, len(snap.Sources))
	known := make(map[models.Source]bool, len(models.Sources))
	for _, src := range models.Sources {
		known[src] = true
		if _, ok := snap.Sources[src]; ok {
			order = append(order, src)
		}
	}
	var extra []models.Source
	for src := range snap.Sources {
		if !known[src] {
			extra = append(extra, src)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}

// LookupPrice finds a price for symbol: exact canonical key, then SYMBOL+USDT,
// then the first key in sorted order containing the canonical symbol.
func LookupPrice(prices models.PriceMap, symbol string) (float64, bool) {
	if len(prices) == 0 {
		return 0, false
	}
	canon := models.NormalizeSymbol(symbol)
	if canon == "" {
		return 0, false
	}
	if p, ok := prices[canon]; ok {
		return p, true
	}
	if p, ok := prices[canon+"USDT"]; ok {
		return p, true
	}
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(strings.ToUpper(k), canon) {
			return prices[k], true
		}
	}
	return 0, false
}

// PnLPercent is sign * (current - entry) / entry * 100.
func PnLPercent(side models.Side, entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	return side.Sign() * (current - entry) / entry * 100
}

// Reconcile merges the snapshot and annotates each signal with its live P&L.
// A missing price leaves the row in place with price_available=false.
// Rows are ordered newest first by entry time, then source and symbol.
func Reconcile(snap *models.Snapshot, prices models.PriceMap) []models.LiveSignal {
	merged := Merge(snap)
	out := make([]models.LiveSignal, 0, len(merged))
	for _, sig := range merged {
		row := models.LiveSignal{Signal: sig}
		if p, ok := LookupPrice(prices, sig.Symbol); ok {
			row.CurrentPrice = p
			row.PriceAvailable = true
			row.PnLPercent = PnLPercent(sig.Side, sig.EntryPrice, p)
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.After(b.EntryTime)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Symbol < b.Symbol
	})
	return out
}

// View accumulates the latest snapshot and prices seen on a stream.
type View struct {
	mu     sync.RWMutex
	snap   *models.Snapshot
	prices models.PriceMap
}

func NewView() *View {
	return &View{snap: models.EmptySnapshot(), prices: models.PriceMap{}}
}

// ApplySnapshot replaces the snapshot unless it is older than the current one.
func (v *View) ApplySnapshot(s *models.Snapshot) bool {
	if s == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap != nil && s.Version != 0 && s.Version < v.snap.Version {
		return false
	}
	v.snap = s
	return true
}

// ApplyPrices merges fresh prices over the known ones.
func (v *View) ApplyPrices(p models.PriceMap) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, price := range p {
		v.prices[k] = price
	}
}

// Rows reconciles the current state.
func (v *View) Rows() []models.LiveSignal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Reconcile(v.snap, v.prices)
}

// Reset forgets the snapshot version so a restarted hub is accepted.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = models.EmptySnapshot()
}
