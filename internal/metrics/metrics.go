package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_upstream_fetches_total",
			Help: "Total data.gov.sg forecast API calls",
		},
		[]string{"horizon", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sgweather_upstream_latency_seconds",
			Help:    "data.gov.sg forecast API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"horizon"},
	)

	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_records_normalized_total",
			Help: "Total view-model records produced by the normalizers",
		},
		[]string{"horizon"},
	)

	ViewRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_view_renders_total",
			Help: "Dashboard views rendered, by outcome",
		},
		[]string{"horizon", "outcome"},
	)

	StaleResponsesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_stale_responses_dropped_total",
			Help: "Fetch results discarded because a newer request for the same horizon was issued",
		},
		[]string{"horizon"},
	)

	LocateRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_locate_requests_total",
			Help: "Device locate actions, by outcome",
		},
		[]string{"outcome"},
	)

	BannerGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgweather_banner_generations_total",
			Help: "Banner image generation attempts, by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sgweather_active_sessions",
			Help: "Dashboard sessions currently held in memory",
		},
	)
)
