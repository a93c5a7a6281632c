// Package metrics provides Prometheus metrics for the UniHive API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, matched route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unihive",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration measures request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unihive",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ListingMutations counts create/update/delete operations per hive.
	ListingMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unihive",
			Name:      "listing_mutations_total",
			Help:      "Total number of listing mutations",
		},
		[]string{"hive", "op"},
	)

	// FilteredResults observes how many listings survive filtering per list request.
	FilteredResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unihive",
			Name:      "filtered_results",
			Help:      "Number of listings left after filtering",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"hive"},
	)

	// AuthEvents counts auth outcomes such as login_ok, login_failed, otp_sent.
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unihive",
			Name:      "auth_events_total",
			Help:      "Total number of authentication events",
		},
		[]string{"event"},
	)

	// WebsocketClients tracks connected websocket clients.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "unihive",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		},
	)

	// SweptListings counts listings closed by the expiry sweeper.
	SweptListings = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "unihive",
			Name:      "swept_listings_total",
			Help:      "Total number of listings closed after their deadline",
		},
	)
)
