package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledgerbot"

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	// Chat metrics
	ChatTurns *prometheus.CounterVec

	// Transfer metrics
	Transfers        *prometheus.CounterVec
	TransferDuration *prometheus.HistogramVec

	// Assistant metrics
	AssistantCalls    *prometheus.CounterVec
	AssistantDuration prometheus.Histogram

	// Outbox metrics
	OutboxEvents *prometheus.CounterVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_turns_total",
				Help:      "Chat turns by classified intent and outcome",
			},
			[]string{"intent", "outcome"},
		),

		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Transfers by status (success, rejected, error)",
			},
			[]string{"status"},
		),
		TransferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Duration of transfer operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		AssistantCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assistant_calls_total",
				Help:      "Model calls by outcome",
			},
			[]string{"outcome"},
		),
		AssistantDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_call_duration_seconds",
			Help:      "Latency of model calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
		}),

		OutboxEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_total",
				Help:      "Outbox events handled by the publisher, by result",
			},
			[]string{"result"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// RecordChatTurn implements usecase.MetricsRecorder.
func (m *Metrics) RecordChatTurn(intent, outcome string) {
	m.ChatTurns.WithLabelValues(intent, outcome).Inc()
}

// RecordTransfer implements usecase.MetricsRecorder.
func (m *Metrics) RecordTransfer(status string, duration time.Duration) {
	m.Transfers.WithLabelValues(status).Inc()
	m.TransferDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveAssistantCall records one model call. Cache hits carry no latency.
func (m *Metrics) ObserveAssistantCall(outcome string, duration time.Duration) {
	m.AssistantCalls.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.AssistantDuration.Observe(duration.Seconds())
	}
}

// RecordOutboxEvent counts one published or failed outbox event.
func (m *Metrics) RecordOutboxEvent(result string) {
	m.OutboxEvents.WithLabelValues(result).Inc()
}

// ObserveHTTP records a finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
