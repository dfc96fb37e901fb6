// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authgate"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid_credentials"
	LoginError   = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// which keeps tests and metric-less deployments free of registry plumbing.
type Metrics struct {
	registry      *prometheus.Registry
	logins        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	proxyRequests *prometheus.CounterVec
	proxyDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxied requests by downstream path and result code.",
		}, []string{"path", "code"}),
		proxyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "duration_seconds",
			Help:      "Time from downstream dial to end of the relayed body.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.httpRequests,
		m.proxyRequests,
		m.proxyDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveProxy(path string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
	m.proxyDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}
