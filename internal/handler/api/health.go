package api

import (
	"time"

	"SignalHub/internal/usecase"
	xhttp "SignalHub/pkg/http"

	"github.com/labstack/echo/v4"
)

// SubscriberCounter reports live real-time subscribers.
type SubscriberCounter interface {
	Count() int
}

// HealthHandler serves liveness.
type HealthHandler struct {
	subs      SubscriberCounter
	ingestor  *usecase.Ingestor
	startedAt time.Time
}

func NewHealthHandler(subs SubscriberCounter, ingestor *usecase.Ingestor) *HealthHandler {
	return &HealthHandler{subs: subs, ingestor: ingestor, startedAt: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthResponse struct {
	Status          string `json:"status"`
	Subscribers     int    `json:"subscribers"`
	SnapshotVersion uint64 `json:"snapshot_version"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	out := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if h.subs != nil {
		out.Subscribers = h.subs.Count()
	}
	if h.ingestor != nil {
		out.SnapshotVersion = h.ingestor.Snapshot().Version
	}
	return xhttp.SuccessResponse(c, out)
}
