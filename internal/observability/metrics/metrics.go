package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OTPIssued        prometheus.Counter
	OTPVerifications *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
	LLMRequests      *prometheus.CounterVec
}

// New registers all collectors, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailer_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mailer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OTPIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "mailer_otp_issued_total",
			Help: "OTP codes generated and delivered",
		}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailer_otp_verifications_total",
			Help: "OTP verification attempts by result",
		}, []string{"result"}), // ok | invalid_token | wrong_code
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailer_emails_sent_total",
			Help: "Outbound email dispatches by result",
		}, []string{"result"}), // ok | rejected | unauthorized | failed
		LLMRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailer_llm_requests_total",
			Help: "LLM drafting calls by operation and result",
		}, []string{"operation", "result"}),
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
