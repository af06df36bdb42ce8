// Package metrics holds the Prometheus collectors of the account service.
// All recording methods are safe to call on a nil *Metrics, which turns
// them into no-ops.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for authentication flows.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidOTP         = "invalid_otp"
	OutcomeNotFound           = "not_found"
	OutcomeError              = "error"
)

// Metrics contains the service collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	AuthAttempts *prometheus.CounterVec
	OTPIssued    prometheus.Counter
	OTPDispatch  *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a registry with the Go and process collectors plus the
// service metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_auth_attempts_total",
				Help: "Authentication flow attempts by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		OTPIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_otp_issued_total",
			Help: "One-time passwords generated for password resets",
		}),
		OTPDispatch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_otp_dispatch_total",
				Help: "OTP hand-offs to the dispatch queue by result",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "account_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthAttempts, m.OTPIssued, m.OTPDispatch, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) AuthAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) OTPIssuedInc() {
	if m == nil {
		return
	}
	m.OTPIssued.Inc()
}

func (m *Metrics) OTPDispatched(ok bool) {
	if m == nil {
		return
	}
	result := "published"
	if !ok {
		result = "failed"
	}
	m.OTPDispatch.WithLabelValues(result).Inc()
}

// ObserveRequest records one served request.  route is the registered
// path pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
