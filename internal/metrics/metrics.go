package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsPreparedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_prepared_total",
		Help: "Total number of payment intents created",
	})

	CheckoutOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout completions by outcome",
	}, []string{"outcome"})

	CheckoutRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejections_total",
		Help: "Checkouts rejected before or after payment",
	}, []string{"reason"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_complete_duration_seconds",
		Help:    "Latency of checkout completion including payment verification",
		Buckets: prometheus.DefBuckets,
	})

	PaymentVerifyAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verify_attempts_total",
		Help: "Payment gateway verification attempts",
	}, []string{"result"})

	PaymentRefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_refunds_total",
		Help: "Compensating payment cancellations",
	}, []string{"result"})

	StockRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrease_rejected_total",
		Help: "Stock decrements rejected for insufficient stock",
	})

	CouponRedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupons redeemed by finalized orders",
	})

	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signups_total",
		Help: "OAuth sign-ins by kind",
	}, []string{"kind"})

	OutboxPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events relayed to Kafka",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
