package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AcquisitionsTotal counts scheduled runs by result (stored, failed, skipped)
	// and the provider that supplied the stored value.
	AcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxguard_acquisitions_total",
			Help: "Rate acquisition runs by result and source",
		},
		[]string{"pair", "result", "source"},
	)

	AcquisitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxguard_acquisition_duration_seconds",
			Help:    "Wall-clock time of one acquisition run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pair"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxguard_provider_requests_total",
			Help: "Outbound rate provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	LatestRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fxguard_latest_rate",
			Help: "Most recently stored rate per pair",
		},
		[]string{"pair"},
	)

	ExpiredRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxguard_expired_rows_deleted_total",
			Help: "Rows removed by expiry sweeps",
		},
		[]string{"store"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxguard_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
