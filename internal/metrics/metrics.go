package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_messages_sent_total",
			Help: "Total messages appended to the ledger",
		},
	)

	DecryptFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_decrypt_failures_total",
			Help: "Total per-record decryption failures during receive",
		},
	)

	AppendCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_append_collisions_total",
			Help: "Total appends lost to a concurrent-append race",
		},
	)

	AirdropsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_airdrops_issued_total",
			Help: "Total airdrops credited to funding accounts",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_store_latency_seconds",
			Help:    "Backing store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"op"},
	)
)
