package api

import (
	"net/http"
	"strconv"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/usecase"
	"SignalHub/pkg/clock"
	xhttp "SignalHub/pkg/http"
	xlogger "SignalHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	HeaderCache    = "X-Cache"
	HeaderCacheAge = "X-Cache-Age"
	HeaderSource   = "X-Source"
)

// PricesHandler exposes the price aggregator.
type PricesHandler struct {
	logger *xlogger.Logger
	prices usecase.PriceProvider
	clk    clock.Clock
}

func NewPricesHandler(logger *xlogger.Logger, prices usecase.PriceProvider, clk clock.Clock) *PricesHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &PricesHandler{logger: logger, prices: prices, clk: clk}
}

func (h *PricesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/prices", h.Prices)
}

// Prices returns a symbol to price map. Cache state travels in headers.
func (h *PricesHandler) Prices(c echo.Context) error {
	symbols := xhttp.SplitList(c.QueryParam("symbols"))
	res, err := h.prices.GetPrices(c.Request().Context(), symbols)
	if err != nil {
		h.logger.Warn("prices unavailable", xlogger.Error(err))
		return errorResponse(c, err)
	}
	h.setHeaders(c, res)
	return c.JSON(http.StatusOK, res.Prices)
}

func (h *PricesHandler) setHeaders(c echo.Context, res *models.PriceResult) {
	setCacheHeaders(c, res)
	c.Response().Header().Set(HeaderCacheAge, strconv.FormatInt(res.Age(h.clk.Now()).Milliseconds(), 10))
}

func setCacheHeaders(c echo.Context, res *models.PriceResult) {
	hdr := c.Response().Header()
	hdr.Set(HeaderCache, string(res.Cache))
	if res.Source != "" {
		hdr.Set(HeaderSource, res.Source)
	}
}
