package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message lifecycle metrics
var (
	MessagesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carrier_messages_created_total",
			Help: "Total number of messages accepted via the API",
		},
	)

	EnrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_enrichment_total",
			Help: "Total number of enrichment attempts",
		},
		[]string{"outcome"}, // ready, deferred, failed, skipped
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_dispatch_total",
			Help: "Total number of dispatch attempts",
		},
		[]string{"outcome"}, // sent, error, skipped
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carrier_dispatch_duration_seconds",
			Help:    "Duration of full message dispatch",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Transport metrics
var (
	TransportSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_transport_sends_total",
			Help: "Total number of transport batch sends",
		},
		[]string{"transport", "result"}, // result: ok, error
	)

	TransportRecipientsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_transport_recipients_total",
			Help: "Total number of recipients handled per transport",
		},
		[]string{"transport", "status"}, // status: sent, failed, ignored
	)
)

// Directory metrics
var (
	DirectoryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_directory_lookups_total",
			Help: "Total number of directory lookup calls",
		},
		[]string{"result"}, // success, failure
	)

	DirectoryLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carrier_directory_lookup_duration_seconds",
			Help:    "Duration of directory lookup calls",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carrier_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carrier_api_auth_failures_total",
			Help: "Total number of API authentication failures",
		},
	)
)

// Queue metrics
var (
	QueueEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_queue_enqueued_total",
			Help: "Total number of triggers enqueued",
		},
		[]string{"kind"}, // enrich, send
	)

	QueueDequeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carrier_queue_dequeued_total",
			Help: "Total number of triggers consumed",
		},
		[]string{"kind"},
	)
)
