package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresTicker(t *testing.T) {
	start := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)
	tk := f.NewTicker(time.Second)
	defer tk.Stop()

	f.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatalf("ticker fired early")
	default:
	}

	f.Advance(500 * time.Millisecond)
	select {
	case got := <-tk.C():
		if !got.Equal(start.Add(time.Second)) {
			t.Fatalf("unexpected tick time %v", got)
		}
	default:
		t.Fatalf("expected tick")
	}
}

func TestFakeStoppedTickerIsSilent(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	tk.Stop()
	f.Advance(5 * time.Second)
	select {
	case <-tk.C():
		t.Fatalf("stopped ticker fired")
	default:
	}
	if f.WaitForTickers(1, 10*time.Millisecond) {
		t.Fatalf("stopped ticker counted as live")
	}
}
