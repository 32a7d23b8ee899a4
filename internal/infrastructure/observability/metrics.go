package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Webhook / reconciliation metrics
	WebhookOutcomes    *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec
	AmountMismatches   prometheus.Counter

	// Inventory metrics
	StockDecrements  *prometheus.CounterVec
	LowStockAlerts   *prometheus.CounterVec
	OutOfStockEvents *prometheus.CounterVec

	// DLQ metrics
	DLQEnqueued  prometheus.Counter
	DLQRetries   *prometheus.CounterVec
	DLQExhausted prometheus.Counter
	DLQDepth     prometheus.Gauge
	SweepRuns    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		WebhookOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_outcomes_total",
				Help:      "Webhook reconciliation outcomes by terminal state",
			},
			[]string{"outcome"},
		),
		SettlementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "settlement_duration_seconds",
				Help:      "Order settlement duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"path"},
		),
		AmountMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "amount_mismatches_total",
				Help:      "Webhooks rejected for reporting an amount different from the stored order total",
			},
		),
		StockDecrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_decrements_total",
				Help:      "Stock decrement attempts by result",
			},
			[]string{"result"},
		),
		LowStockAlerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "low_stock_alerts_total",
				Help:      "Low-stock alerts emitted during settlement",
			},
			[]string{"product_id"},
		),
		OutOfStockEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "out_of_stock_events_total",
				Help:      "Products flipped to out-of-stock during settlement",
			},
			[]string{"product_id"},
		),
		DLQEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dlq_enqueued_total",
				Help:      "Failed settlements queued for retry",
			},
		),
		DLQRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dlq_retries_total",
				Help:      "DLQ retry attempts by result",
			},
			[]string{"result"},
		),
		DLQExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dlq_exhausted_total",
				Help:      "DLQ records that hit the retry ceiling",
			},
		),
		DLQDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dlq_depth",
				Help:      "Live DLQ records awaiting retry",
			},
		),
		SweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dlq_sweep_runs_total",
				Help:      "Sweeper cycles by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.WebhookOutcomes,
		m.SettlementDuration,
		m.AmountMismatches,
		m.StockDecrements,
		m.LowStockAlerts,
		m.OutOfStockEvents,
		m.DLQEnqueued,
		m.DLQRetries,
		m.DLQExhausted,
		m.DLQDepth,
		m.SweepRuns,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
