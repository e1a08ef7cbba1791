package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder records onto its own registry so tests can run
// several instances without duplicate-registration panics.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	verdicts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	verdicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitcoinfaces",
			Name:      "payment_verdicts_total",
			Help:      "Payment verification verdicts by reason (valid counts as reason=\"valid\")",
		},
		[]string{"reason"},
	)

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitcoinfaces",
			Name:      "mint_outcomes_total",
			Help:      "Terminal mint request outcomes by status",
		},
		[]string{"status"},
	)

	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bitcoinfaces",
			Name:      "outbound_latency_seconds",
			Help:      "Latency of outbound calls by target",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(verdicts, outcomes, latency)

	return &PrometheusRecorder{
		registry: registry,
		verdicts: verdicts,
		outcomes: outcomes,
		latency:  latency,
	}
}

func (p *PrometheusRecorder) IncVerdict(reason string) {
	p.verdicts.With(prometheus.Labels{"reason": reason}).Inc()
}

func (p *PrometheusRecorder) IncOutcome(status string) {
	p.outcomes.With(prometheus.Labels{"status": status}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(target string, d time.Duration) {
	p.latency.With(prometheus.Labels{"target": target}).Observe(d.Seconds())
}

// Handler exposes the recorder's registry for the /metrics route.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
