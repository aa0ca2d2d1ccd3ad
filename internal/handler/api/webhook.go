package api

import (
	"net/http"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/usecase"
	xhttp "SignalHub/pkg/http"
	"SignalHub/pkg/http/middleware"
	xlogger "SignalHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WebhookHandler accepts producer signals.
type WebhookHandler struct {
	logger   *xlogger.Logger
	ingestor *usecase.Ingestor
	limiter  middleware.Limiter
}

// NewWebhookHandler creates the ingestion routes. A nil limiter disables rate limiting.
func NewWebhookHandler(logger *xlogger.Logger, ingestor *usecase.Ingestor, limiter middleware.Limiter) *WebhookHandler {
	return &WebhookHandler{logger: logger, ingestor: ingestor, limiter: limiter}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	rl := middleware.RateLimit(h.limiter, func(c echo.Context) error {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many webhook requests"))
	})
	e.POST("/api/webhook/:source", h.Signal, rl)
	e.POST("/webhook", h.State, rl)
}

// Signal ingests one signal from the producer named in the path.
func (h *WebhookHandler) Signal(c echo.Context) error {
	source := c.Param("source")
	req := models.SignalRequest{}
	if verr := decodeBody(c, &req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.ingestor.Accept(c.Request().Context(), source, req)
	if err != nil {
		if !models.IsValidation(err) {
			h.logger.Error("webhook ingest failed", xlogger.String("source", source), xlogger.Error(err))
		}
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: "Signal received",
		Data:    sig,
	})
}

// State applies a producer full-state update.
func (h *WebhookHandler) State(c echo.Context) error {
	req := &models.StateUpdateRequest{}
	if verr := decodeBody(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if verr := xhttp.ValidateStruct(c.Request().Context(), req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.ingestor.ApplyState(c.Request().Context(), req.Source, req.Entries(), req.Status)
	if err != nil {
		return errorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
