package models

import "strings"

// quote decorations stripped from exchange symbols, longest first.
var symbolSuffixes = []string{":USDT", "-SWAP", "/USDT", "-USDT", "USDT"}

// NormalizeSymbol maps exchange spellings onto the canonical base symbol:
// BTC/USDT:USDT, BTC-USDT-SWAP, BTC-USDT, BTCUSDT and btc all become BTC.
// A bare quote symbol such as USDT is kept as is.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for changed := true; changed; {
		changed = false
		for _, suf := range symbolSuffixes {
			if strings.HasSuffix(s, suf) && len(s) > len(suf) {
				s = strings.TrimSuffix(s, suf)
				changed = true
			}
		}
	}
	return s
}
