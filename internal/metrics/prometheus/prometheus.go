package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/split2ynab/backend/internal/metrics"
)

// Namespace prefixes every exported metric
const Namespace = "split2ynab"

// PrometheusCollector implements metrics.Collector for Prometheus.
type PrometheusCollector struct {
	runs        *prometheus.CounterVec
	written     *prometheus.CounterVec
	watermark   prometheus.Gauge
	runDuration prometheus.Histogram
	funding     *prometheus.CounterVec
	errors      *prometheus.CounterVec

	circuitState *prometheus.GaugeVec
	circuitOpens *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector. Call Register before use.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of sync runs by result",
			},
			[]string{"result"},
		),
		written: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_written_total",
				Help:      "Total number of transactions sent to the budget, by create or update",
			},
			[]string{"kind"},
		),
		watermark: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watermark_timestamp_seconds",
				Help:      "Unix time of the last persisted watermark",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Sync run latency",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		funding: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "funding_adjustments_total",
				Help:      "Total number of credit card category adjustments by result",
			},
			[]string{"result"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed runs by error kind",
			},
			[]string{"kind"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per client (0=closed, 1=open, 2=half-open)",
			},
			[]string{"client"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per client",
			},
			[]string{"client"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.runs,
		pc.written,
		pc.watermark,
		pc.runDuration,
		pc.funding,
		pc.errors,
		pc.circuitState,
		pc.circuitOpens,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordRun(result string, duration time.Duration) {
	pc.runs.WithLabelValues(result).Inc()
	pc.runDuration.Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordWritten(kind string, n int) {
	if n <= 0 {
		return
	}
	pc.written.WithLabelValues(kind).Add(float64(n))
}

func (pc *PrometheusCollector) RecordWatermark(t time.Time) {
	pc.watermark.Set(float64(t.UnixNano()) / 1e9)
}

func (pc *PrometheusCollector) RecordFunding(result string) {
	pc.funding.WithLabelValues(result).Inc()
}

func (pc *PrometheusCollector) RecordError(kind string) {
	pc.errors.WithLabelValues(kind).Inc()
}

func (pc *PrometheusCollector) RecordCircuitState(client string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(client).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(client).Inc()
	}
}
