package api

import (
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/usecase"
	xhttp "SignalHub/pkg/http"
	xlogger "SignalHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler serves the read side of the signal feed.
type SignalsHandler struct {
	logger   *xlogger.Logger
	ingestor *usecase.Ingestor
	feed     *usecase.Feed
}

func NewSignalsHandler(logger *xlogger.Logger, ingestor *usecase.Ingestor, feed *usecase.Feed) *SignalsHandler {
	return &SignalsHandler{logger: logger, ingestor: ingestor, feed: feed}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.List)
	g.GET("/signals/live", h.Live)
	g.GET("/scan-status", h.ScanStatus)
}

// List returns recent signals newest first.
func (h *SignalsHandler) List(c echo.Context) error {
	q := &models.SignalQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.ingestor.Query(*q)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type liveResponse struct {
	Signals     []models.LiveSignal `json:"signals"`
	PriceSource string              `json:"price_source,omitempty"`
	PriceCache  models.CacheStatus  `json:"price_cache,omitempty"`
	PricesAt    *time.Time          `json:"prices_at,omitempty"`
}

// Live returns the reconciled view with current prices and P&L.
func (h *SignalsHandler) Live(c echo.Context) error {
	rows, prices := h.feed.Live(c.Request().Context())
	out := liveResponse{Signals: rows}
	if prices != nil {
		at := prices.ObservedAt
		out.PriceSource, out.PriceCache, out.PricesAt = prices.Source, prices.Cache, &at
		setCacheHeaders(c, prices)
	}
	return xhttp.SuccessResponse(c, out)
}

// ScanStatus reports every producer's scan window.
func (h *SignalsHandler) ScanStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.feed.ScanStatus())
}
