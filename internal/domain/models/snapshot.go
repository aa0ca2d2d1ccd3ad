package models

import (
	"sort"
	"time"
)

// SourceState is the visible set published by one producer.
type SourceState struct {
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`
	Signals   []Signal  `json:"signals"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the full published state. It must not be mutated once published.
type Snapshot struct {
	Version   uint64                  `json:"version"`
	Sources   map[Source]*SourceState `json:"sources"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// EmptySnapshot has every source present in the waiting state.
func EmptySnapshot() *Snapshot {
	s := &Snapshot{Sources: make(map[Source]*SourceState, len(Sources))}
	for _, src := range Sources {
		s.Sources[src] = &SourceState{Source: src, Status: StatusWaiting, Signals: []Signal{}}
	}
	return s
}

// Source returns the state for src or nil.
func (s *Snapshot) Source(src Source) *SourceState {
	if s == nil {
		return nil
	}
	return s.Sources[src]
}

// Signals flattens all sources, newest first.
func (s *Snapshot) Signals() []Signal {
	if s == nil {
		return nil
	}
	n := 0
	for _, st := range s.Sources {
		n += len(st.Signals)
	}
	out := make([]Signal, 0, n)
	for _, st := range s.Sources {
		out = append(out, st.Signals...)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by entry time descending, then sequence, source and symbol.
func SortNewestFirst(signals []Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.After(b.EntryTime)
		}
		if a.Seq != b.Seq {
			return a.Seq > b.Seq
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Symbol < b.Symbol
	})
}
