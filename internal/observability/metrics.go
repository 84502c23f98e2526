// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TransactionsProcessed prometheus.Counter
	BlocksObserved        prometheus.Counter
	FeedReconnects        prometheus.Counter
	DecodeErrors          prometheus.Counter

	// Aggregation metrics
	WhalesDetected   prometheus.Counter
	SummariesEmitted prometheus.Counter

	// Fan-out metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	Subscribers     prometheus.Gauge

	// Price metrics
	PriceUSD prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whalewatch"
	}

	return &Metrics{
		TransactionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "transactions_processed_total",
			Help:      "Total number of unconfirmed transactions processed",
		}),
		BlocksObserved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "blocks_observed_total",
			Help:      "Total number of new blocks observed",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts after a lost connection",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "decode_errors_total",
			Help:      "Total number of inbound messages dropped as unparseable",
		}),

		WhalesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "whales_detected_total",
			Help:      "Total number of transactions classified as whales",
		}),
		SummariesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "summaries_emitted_total",
			Help:      "Total number of interval summaries emitted",
		}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Total number of events published by kind",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for saturated subscribers by kind",
		}, []string{"kind"}),
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Current number of registered subscribers",
		}),

		PriceUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "btc_usd",
			Help:      "Latest cached BTC price in USD",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransactionProcessed increments the transactions processed counter.
func RecordTransactionProcessed() {
	DefaultMetrics.TransactionsProcessed.Inc()
}

// RecordBlockObserved increments the blocks observed counter.
func RecordBlockObserved() {
	DefaultMetrics.BlocksObserved.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordDecodeError increments the decode error counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordWhaleDetected increments the whale counter.
func RecordWhaleDetected() {
	DefaultMetrics.WhalesDetected.Inc()
}

// RecordSummaryEmitted increments the summary counter.
func RecordSummaryEmitted() {
	DefaultMetrics.SummariesEmitted.Inc()
}

// RecordEventPublished records one published event by kind.
func RecordEventPublished(kind string) {
	DefaultMetrics.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDropped records one dropped event by kind.
func RecordEventDropped(kind string) {
	DefaultMetrics.EventsDropped.WithLabelValues(kind).Inc()
}

// SetSubscribers updates the subscriber gauge.
func SetSubscribers(n int) {
	DefaultMetrics.Subscribers.Set(float64(n))
}

// SetPriceUSD updates the cached price gauge.
func SetPriceUSD(usd float64) {
	DefaultMetrics.PriceUSD.Set(usd)
}
