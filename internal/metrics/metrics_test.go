package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.CheckoutAttempt("success")
	m.CheckoutAttempt("success")
	m.CheckoutAttempt("insufficient_stock")
	m.ReservationFailed()
	m.ObserveGateway("cod", 12*time.Millisecond)
	m.HTTPRequest("/checkout", http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		`storecheckout_checkout_attempts_total{outcome="success"} 2`,
		`storecheckout_checkout_attempts_total{outcome="insufficient_stock"} 1`,
		"storecheckout_reservation_failures_total 1",
		"storecheckout_gateway_duration_ms",
		`storecheckout_http_requests_total{route="/checkout",status="200"} 1`,
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("metrics output missing %q", name)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CheckoutAttempt("success")
	m.ReservationFailed()
	m.ObserveGateway("cod", time.Second)
	m.HTTPRequest("/", 200)
}
