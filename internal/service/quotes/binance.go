// Package quotes implements exchange ticker sources.
package quotes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"SignalHub/internal/domain/models"
	pkghttp "SignalHub/pkg/http"
)

// Binance reads the spot ticker endpoint shared by binance.com and binance.us.
type Binance struct {
	name   string
	url    string
	client *pkghttp.Client
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewBinance creates a source reporting itself as name.
func NewBinance(name, url string, client *pkghttp.Client) *Binance {
	return &Binance{name: name, url: url, client: client}
}

func (b *Binance) Name() string { return b.name }

// Fetch returns every USDT pair keyed by base symbol.
func (b *Binance) Fetch(ctx context.Context) (models.PriceMap, error) {
	var tickers []binanceTicker
	err := b.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     b.url,
		Headers: map[string]string{"Accept": "application/json"},
	}, &tickers)
	if err != nil {
		return nil, fmt.Errorf("%s tickers: %w", b.name, err)
	}

	out := make(models.PriceMap, len(tickers)/2)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		base := strings.TrimSuffix(t.Symbol, "USDT")
		if base == "" {
			continue
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		out[base] = price
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s tickers: no usable USDT prices", b.name)
	}
	return out, nil
}
