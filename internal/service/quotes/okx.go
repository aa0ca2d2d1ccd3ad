package quotes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"SignalHub/internal/domain/models"
	pkghttp "SignalHub/pkg/http"
)

// OKX reads perpetual swap tickers.
type OKX struct {
	url    string
	client *pkghttp.Client
}

type okxResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []okxTicker `json:"data"`
}

type okxTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
}

func NewOKX(url string, client *pkghttp.Client) *OKX {
	return &OKX{url: url, client: client}
}

func (o *OKX) Name() string { return "okx" }

// Fetch returns every -USDT instrument keyed by base symbol.
func (o *OKX) Fetch(ctx context.Context) (models.PriceMap, error) {
	var resp okxResponse
	err := o.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    o.url,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("okx tickers: %w", err)
	}
	if resp.Code != "" && resp.Code != "0" {
		return nil, fmt.Errorf("okx tickers: code %s: %s", resp.Code, resp.Msg)
	}

	out := make(models.PriceMap, len(resp.Data))
	for _, t := range resp.Data {
		if !strings.Contains(t.InstID, "-USDT") {
			continue
		}
		base := strings.SplitN(t.InstID, "-", 2)[0]
		price, err := strconv.ParseFloat(t.Last, 64)
		if base == "" || err != nil || price <= 0 {
			continue
		}
		if _, seen := out[base]; !seen {
			out[base] = price
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("okx tickers: no usable USDT prices")
	}
	return out, nil
}
