package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsAccepted *prometheus.CounterVec
	signalsRejected *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	priceFetches    *prometheus.CounterVec
	subscribers     prometheus.Gauge
	droppedEvents   *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signalsAccepted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalhub_signals_accepted_total",
				Help: "Total number of signals accepted",
			},
			[]string{"source"},
		),
		signalsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalhub_signals_rejected_total",
				Help: "Total number of signals rejected",
			},
			[]string{"source", "reason"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalhub_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalhub_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalhub_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		priceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalhub_price_requests_total",
				Help: "Price lookups by serving source and cache status",
			},
			[]string{"source", "cache"},
		),
		subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalhub_subscribers",
				Help: "Connected real-time subscribers",
			},
		),
		droppedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalhub_dropped_events_total",
				Help: "Events not delivered to a subscriber",
			},
			[]string{"reason"},
		),
	}
}

// RecordSignalAccepted records an accepted signal.
func (r *Recorder) RecordSignalAccepted(source string) {
	r.signalsAccepted.WithLabelValues(source).Inc()
}

// RecordSignalRejected records a rejected signal.
func (r *Recorder) RecordSignalRejected(source, reason string) {
	r.signalsRejected.WithLabelValues(source, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPriceFetch records which source and cache status served a price lookup.
func (r *Recorder) RecordPriceFetch(source, cache string) {
	r.priceFetches.WithLabelValues(source, cache).Inc()
}

func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

func (r *Recorder) RecordDroppedEvent(reason string) {
	r.droppedEvents.WithLabelValues(reason).Inc()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordSignalAccepted(string)         {}
func (Nop) RecordSignalRejected(string, string) {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLastPrice(string, float64)     {}
func (Nop) RecordLatency(string, float64)       {}
func (Nop) RecordPriceFetch(string, string)     {}
func (Nop) SetSubscribers(int)                  {}
func (Nop) RecordDroppedEvent(string)           {}
