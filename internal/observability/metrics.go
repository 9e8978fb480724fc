package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fareone", Name: "quotes_total", Help: "Total number of fares quoted"})
	OrdersTotal      = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "fareone", Name: "orders_total", Help: "Orders created by payment method"}, []string{"method"})
	SuggestLatency   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "fareone", Name: "suggest_latency_seconds", Help: "Geocoder suggestion latency seconds"})
	RouteLatency     = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "fareone", Name: "route_latency_seconds", Help: "Directions lookup latency seconds"})
	RouteFailures    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fareone", Name: "route_failures_total", Help: "Failed directions lookups"})
	PaymentFailures  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fareone", Name: "payment_failures_total", Help: "Failed checkout session creations"})
	SuggestCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "fareone", Name: "suggest_cache_total", Help: "Suggestion cache lookups by outcome"}, []string{"outcome"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fareone", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fareone",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
