package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders completed",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order operations",
	}, []string{"reason"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order state transitions by target status",
	}, []string{"status"})

	InventoryDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_decrement_latency_seconds",
		Help:    "Latency of inventory decrement operations",
		Buckets: prometheus.DefBuckets,
	})

	InventoryDecrementsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_decrements_failed_total",
		Help: "Total number of failed inventory decrements",
	}, []string{"reason"})

	InventoryReversalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reversals_total",
		Help: "Total number of cancellation inventory reversals",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low-stock alerts emitted",
	})

	LoyaltyPointsEarnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Total loyalty points earned across all customers",
	})

	LoyaltyRedemptionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_redemptions_failed_total",
		Help: "Total number of redemptions rejected for insufficient balance",
	})

	PromotionsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promotions_applied_total",
		Help: "Total number of promotions applied to orders",
	})

	PromotionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promotions_rejected_total",
		Help: "Total number of promotion codes rejected",
	}, []string{"reason"})

	RollupRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollup_runs_total",
		Help: "Total number of daily summary recomputations",
	})

	RollupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollup_latency_seconds",
		Help:    "Latency of daily summary recomputation",
		Buckets: prometheus.DefBuckets,
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
