package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/schedule"
	"SignalHub/internal/service/ratelimit"
	"SignalHub/internal/state"
	"SignalHub/internal/usecase"
	"SignalHub/pkg/clock"
	xhttp "SignalHub/pkg/http"
	xlogger "SignalHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubPrices struct {
	res *models.PriceResult
	err error
}

func (s *stubPrices) GetPrices(context.Context, []string) (*models.PriceResult, error) {
	return s.res, s.err
}

func (s *stubPrices) DefaultSymbols() []string { return []string{"BTC"} }

type testAPI struct {
	e        *echo.Echo
	ingestor *usecase.Ingestor
	clk      *clock.Fake
}

func newTestAPI(t *testing.T, prices *stubPrices, limiter *ratelimit.Limiter) *testAPI {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC))
	store := state.NewStore()
	ing := usecase.NewIngestor(store, nil, usecase.WithIngestorClock(clk))
	oracle := schedule.NewOracle(map[string]int{"short_hunter": 15, "bounty_seeker": 60}, 30*time.Second)
	feed := usecase.NewFeed(store, prices, oracle, nil, clk, nil, nil)
	log := xlogger.Nop()

	e := echo.New()
	webhook := NewWebhookHandler(log, ing, nil)
	if limiter != nil {
		webhook = NewWebhookHandler(log, ing, limiter)
	}
	webhook.RegisterRoutes(e)
	NewSignalsHandler(log, ing, feed).RegisterRoutes(e)
	NewPricesHandler(log, prices, clk).RegisterRoutes(e)
	NewHealthHandler(nil, ing).RegisterRoutes(e)
	return &testAPI{e: e, ingestor: ing, clk: clk}
}

func (a *testAPI) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) xhttp.APIResponse {
	t.Helper()
	resp := xhttp.APIResponse{Data: data}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestWebhookThenList(t *testing.T) {
	api := newTestAPI(t, &stubPrices{}, nil)

	rec := api.do(http.MethodPost, "/api/webhook/tradingview", `{"symbol":"ETHUSDT","side":"LONG","entry_price":"3000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var sig models.Signal
	decode(t, rec, &sig)
	if sig.Symbol != "ETH" || sig.StopLoss != 2940 || sig.TakeProfit != 3120 {
		t.Fatalf("unexpected signal %+v", sig)
	}

	rec = api.do(http.MethodGet, "/api/signals?limit=10&side=long", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", rec.Code, rec.Body.String())
	}
	var list struct {
		Rows  []models.Signal `json:"rows"`
		Total int64           `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 || list.Rows[0].ID != sig.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestWebhookAcceptsTextPlainBody(t *testing.T) {
	api := newTestAPI(t, &stubPrices{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/tradingview",
		strings.NewReader(`{"symbol":"BTC","side":"buy","entry_price":65000,"message":"RSI div, EMA cross"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var sig models.Signal
	decode(t, rec, &sig)
	if sig.Side != models.SideLong || len(sig.Reasons) != 2 || sig.Reasons[1] != "EMA cross" {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestWebhookValidationErrors(t *testing.T) {
	api := newTestAPI(t, &stubPrices{}, nil)

	rec := api.do(http.MethodPost, "/api/webhook/tradingview", `{"side":"LONG"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var errs []xhttp.ValidationError
	decode(t, rec, &errs)
	found := map[string]string{}
	for _, e := range errs {
		found[e.Field] = e.Message
	}
	if found["symbol"] != "symbol is required" || found["entry_price"] == "" {
		t.Fatalf("unexpected errors %+v", errs)
	}

	rec = api.do(http.MethodPost, "/api/webhook/tradingview", `{not json`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_MALFORMED") {
		t.Fatalf("malformed body: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodPost, "/api/webhook/unknown", `{"symbol":"BTC","side":"LONG","entry_price":1}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_UNKNOWN_SOURCE") {
		t.Fatalf("unknown source: %d %s", rec.Code, rec.Body.String())
	}
	if n := len(api.ingestor.Snapshot().Signals()); n != 0 {
		t.Fatalf("rejected requests reached the store: %d", n)
	}
}

func TestWebhookRateLimited(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	api := newTestAPI(t, &stubPrices{}, ratelimit.New(2, 0.001, clk))
	body := `{"symbol":"BTC","side":"LONG","entry_price":1}`

	for i := 0; i < 2; i++ {
		if rec := api.do(http.MethodPost, "/api/webhook/manual", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := api.do(http.MethodPost, "/api/webhook/manual", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var errs []xhttp.AppError
	resp := decode(t, rec, &errs)
	if resp.Status != http.StatusTooManyRequests || len(errs) != 1 || errs[0].Code != "ERR_RATE_LIMITED" {
		t.Fatalf("unexpected 429 body %s", rec.Body.String())
	}
}

func TestStateWebhookReplacesSource(t *testing.T) {
	api := newTestAPI(t, &stubPrices{}, nil)
	body := `{"source":"bounty-seeker","status":"scanning","data":{"signals":[
		{"symbol":"BTCUSDT","side":"LONG","entry_price":65000,"timestamp":1728554400},
		{"symbol":"ETH","side":"FLAT","entry_price":3000}
	]}}`
	rec := api.do(http.MethodPost, "/webhook", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res usecase.StateResult
	decode(t, rec, &res)
	if len(res.Accepted) != 1 || len(res.Rejected) != 1 || res.Status != models.StatusScanning {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Accepted[0].EntryTime.Equal(time.Unix(1728554400, 0)) {
		t.Fatalf("timestamp not honoured: %v", res.Accepted[0].EntryTime)
	}

	rec = api.do(http.MethodPost, "/webhook", `{"signals":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing source should fail, got %d", rec.Code)
	}
}

func TestPricesHeaders(t *testing.T) {
	prices := &stubPrices{}
	api := newTestAPI(t, prices, nil)
	prices.res = &models.PriceResult{
		Prices:     models.PriceMap{"BTC": 65000},
		Cache:      models.CacheHit,
		Source:     "binance-us",
		ObservedAt: api.clk.Now().Add(-400 * time.Millisecond),
	}

	rec := api.do(http.MethodGet, "/api/prices?symbols=BTC", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(HeaderCache) != "HIT" || rec.Header().Get(HeaderSource) != "binance-us" || rec.Header().Get(HeaderCacheAge) != "400" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	var got map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got["BTC"] != 65000 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestPricesUnavailable(t *testing.T) {
	api := newTestAPI(t, &stubPrices{err: models.ErrUpstreamUnavailable}, nil)
	rec := api.do(http.MethodGet, "/api/prices", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "ERR_UPSTREAM_UNAVAILABLE") {
		t.Fatalf("expected 503, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestLiveView(t *testing.T) {
	prices := &stubPrices{res: &models.PriceResult{Prices: models.PriceMap{"SOL": 165}, Cache: models.CacheMiss, Source: "binance-global"}}
	api := newTestAPI(t, prices, nil)
	api.do(http.MethodPost, "/api/webhook/manual", `{"symbol":"SOL","side":"SHORT","entry_price":150}`)

	rec := api.do(http.MethodGet, "/api/signals/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var live liveResponse
	decode(t, rec, &live)
	if len(live.Signals) != 1 || !live.Signals[0].PriceAvailable || live.Signals[0].PnLPercent != -10 {
		t.Fatalf("unexpected live view %+v", live)
	}
	if rec.Header().Get(HeaderSource) != "binance-global" {
		t.Fatalf("missing source header")
	}
}

func TestScanStatusAndHealth(t *testing.T) {
	api := newTestAPI(t, &stubPrices{}, nil)
	rec := api.do(http.MethodGet, "/api/scan-status", "")
	var st models.ScanStatus
	decode(t, rec, &st)
	if len(st.Producers) != 2 || st.Producers[0].ProducerID != "short_hunter" {
		t.Fatalf("unexpected status %+v", st)
	}
	if !st.Producers[0].NextScan.Equal(time.Date(2024, 10, 10, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("next scan = %v", st.Producers[0].NextScan)
	}

	rec = api.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"subscribers":0`) || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}
}
