// Package metrics holds the Prometheus collectors of the booking service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revuetix_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	SeatLockAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revuetix_seat_lock_attempts_total",
			Help: "Seat lock attempts by outcome",
		},
		[]string{"outcome"}, // "acquired", "conflict", "error"
	)

	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "revuetix_orders_created_total",
			Help: "Orders created with a checkout session",
		},
	)

	OrdersPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "revuetix_orders_paid_total",
			Help: "Orders that transitioned to paid",
		},
	)

	PaymentChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revuetix_payment_checks_total",
			Help: "Payment status checks by resulting status",
		},
		[]string{"status"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revuetix_emails_total",
			Help: "Confirmation emails by outcome",
		},
		[]string{"outcome"}, // "sent", "skipped", "duplicate", "error"
	)

	PaymentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "revuetix_payment_queue_depth",
			Help: "Orders waiting for a payment status check",
		},
	)

	SeatCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revuetix_seat_cache_requests_total",
			Help: "Seat map reads by cache result",
		},
		[]string{"result"}, // "hit", "miss"
	)
)

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
