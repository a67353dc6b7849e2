package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"financas/internal/services"
)

// Metrics holds the Prometheus collectors of the web server. It also
// receives business events from the services layer.
//
// Metrics:
//   - financas_http_requests_total{method,status}
//   - financas_http_request_duration_seconds{method}
//   - financas_transactions_created_total{kind}
//   - financas_plan_changes_total{op}
//   - financas_sync_publish_failures_total
//   - financas_balance_cache_requests_total{result}
//   - financas_rate_limited_total
//   - financas_suspicious_requests_total
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	TransactionsCreated *prometheus.CounterVec
	PlanChanges         *prometheus.CounterVec
	PublishFailures     prometheus.Counter
	BalanceCache        *prometheus.CounterVec
	RateLimited         prometheus.Counter
	SuspiciousRequests  prometheus.Counter
}

var _ services.Recorder = (*Metrics)(nil)

// NewMetrics registers the collectors, plus Go runtime and process
// collectors, on a fresh registry so several servers can coexist in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "financas_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method"}),
		TransactionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_transactions_created_total",
			Help: "Transactions recorded, by kind",
		}, []string{"kind"}),
		PlanChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_plan_changes_total",
			Help: "Plan create, update and delete operations",
		}, []string{"op"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "financas_sync_publish_failures_total",
			Help: "Sync messages that could not be published",
		}),
		BalanceCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_balance_cache_requests_total",
			Help: "Balance cache lookups, by result",
		}, []string{"result"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "financas_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		SuspiciousRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "financas_suspicious_requests_total",
			Help: "Requests flagged as probes",
		}),
	}
}

func (m *Metrics) TransactionCreated(isIncome bool) {
	kind := "expense"
	if isIncome {
		kind = "income"
	}
	m.TransactionsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) PlanChanged(op string) {
	m.PlanChanges.WithLabelValues(op).Inc()
}

func (m *Metrics) PublishFailed() {
	m.PublishFailures.Inc()
}

// ObserveCache is a cache observer callback.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.BalanceCache.WithLabelValues(result).Inc()
}

// ObserveRequest is a trace observer callback. The path is not a label: it
// embeds plan ids.
func (m *Metrics) ObserveRequest(method, _ string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
