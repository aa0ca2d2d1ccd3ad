package state

import (
	"sync"
	"testing"
	"time"

	"SignalHub/internal/domain/models"
)

func TestReplaceLeavesPublishedSnapshotUntouched(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(100, 0)

	first := s.Replace(models.SourceTradingView, []models.Signal{{Symbol: "BTC"}}, "", t0)
	second := s.Replace(models.SourceTradingView, []models.Signal{{Symbol: "BTC"}, {Symbol: "ETH"}}, "", t0.Add(time.Second))

	if len(first.Source(models.SourceTradingView).Signals) != 1 {
		t.Fatalf("earlier snapshot was mutated")
	}
	if len(second.Source(models.SourceTradingView).Signals) != 2 {
		t.Fatalf("unexpected signals in new snapshot")
	}
	if second.Version != first.Version+1 {
		t.Fatalf("expected version bump, got %d -> %d", first.Version, second.Version)
	}
	if s.Current() != second {
		t.Fatalf("current should be the latest snapshot")
	}
}

func TestReplaceKeepsOtherSources(t *testing.T) {
	s := NewStore()
	s.Replace(models.SourceShortHunter, []models.Signal{{Symbol: "SOL"}}, models.StatusScanning, time.Unix(1, 0))
	snap := s.Replace(models.SourceTradingView, []models.Signal{{Symbol: "BTC"}}, "", time.Unix(2, 0))

	sh := snap.Source(models.SourceShortHunter)
	if sh == nil || len(sh.Signals) != 1 || sh.Status != models.StatusScanning {
		t.Fatalf("unexpected short_hunter state %+v", sh)
	}
	if tv := snap.Source(models.SourceTradingView); tv.Status != models.StatusActive {
		t.Fatalf("expected active status, got %s", tv.Status)
	}
}

func TestReplaceCopiesInput(t *testing.T) {
	s := NewStore()
	in := []models.Signal{{Symbol: "BTC"}}
	snap := s.Replace(models.SourceManual, in, "", time.Unix(1, 0))
	in[0].Symbol = "XRP"
	if snap.Source(models.SourceManual).Signals[0].Symbol != "BTC" {
		t.Fatalf("store must copy the caller's slice")
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Replace(models.SourceManual, make([]models.Signal, i%5), "", time.Unix(int64(i), 0))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap := s.Current()
			if snap == nil || snap.Sources == nil {
				t.Errorf("nil snapshot")
				return
			}
		}
	}()
	wg.Wait()
}
