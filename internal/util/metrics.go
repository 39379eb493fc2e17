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
		Help: "Total number of failed order operations",
	}, []string{"reason"})

	OrderLinesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_lines_added_total",
		Help: "Total number of order lines added",
	})

	OrderLinesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_lines_removed_total",
		Help: "Total number of order lines removed",
	})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Total number of order status changes",
	}, []string{"status"})

	MovementsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_recorded_total",
		Help: "Total number of stock movements recorded",
	}, []string{"type"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products created",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected inputs",
	}, []string{"operation"})

	StockMutationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_mutation_latency_seconds",
		Help:    "Latency of transactional stock mutations",
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
