package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order attempts",
	}, []string{"reason"})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders transitioned to DONE",
	})

	CallbacksDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_callbacks_duplicate_total",
		Help: "Total number of duplicate gateway callback deliveries",
	})

	CallbacksRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_rejected_total",
		Help: "Total number of rejected gateway callbacks",
	}, []string{"reason"})

	RefundsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_requested_total",
		Help: "Total number of accepted refund requests",
	})

	RefundsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_rejected_total",
		Help: "Total number of rejected refund requests",
	}, []string{"reason"})

	StockDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_decrement_latency_seconds",
		Help:    "Latency of conditional stock decrements",
		Buckets: prometheus.DefBuckets,
	})

	GatewayRequestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of outbound payment gateway requests",
		Buckets: prometheus.DefBuckets,
	})

	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of failed gateway checkout requests",
	}, []string{"kind"})

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
