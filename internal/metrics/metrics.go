package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storecheckout"

// Metrics holds the checkout collectors. A nil *Metrics discards everything.
type Metrics struct {
	registry            *prometheus.Registry
	CheckoutAttempts    *prometheus.CounterVec
	ReservationFailures prometheus.Counter
	GatewayDurationMS   *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CheckoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_attempts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		ReservationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_failures_total",
			Help:      "Stock reservations rejected for insufficient stock.",
		}),
		GatewayDurationMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_duration_ms",
			Help:      "Payment gateway latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
	}
	m.registry.MustRegister(
		m.CheckoutAttempts,
		m.ReservationFailures,
		m.GatewayDurationMS,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CheckoutAttempt(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReservationFailed() {
	if m == nil {
		return
	}
	m.ReservationFailures.Inc()
}

func (m *Metrics) ObserveGateway(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayDurationMS.WithLabelValues(method).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
