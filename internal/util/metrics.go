package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of cart add-or-increment operations",
	})

	CartItemsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_removed_total",
		Help: "Total number of cart item removals",
	})

	CartClearsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_clears_failed_total",
		Help: "Total number of post-checkout cart clears that failed",
	})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of successful checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	}, []string{"payment_method", "status"})

	OrderTotalAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Distribution of order totals in minor currency units",
		Buckets: prometheus.ExponentialBuckets(100, 10, 6),
	})

	OrderAssemblyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_assembly_latency_seconds",
		Help:    "Latency of order assembly and commit",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of order confirmation notifications sent",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of order confirmation notifications that failed",
	})

	ProductCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_hits_total",
		Help: "Product snapshot cache lookups by outcome",
	}, []string{"outcome"})

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
