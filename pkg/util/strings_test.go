package util

import "testing"

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" BTC, ETH ,,sol ", ",")
	want := []string{"BTC", "ETH", "sol"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
