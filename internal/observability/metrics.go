package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "respondr", Name: "requests_total", Help: "Dispatch requests received by kind"},
		[]string{"kind"},
	)
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "matches_total", Help: "Total successful nearest-responder selections"})
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "respondr", Name: "match_latency_seconds", Help: "Nearest-responder selection latency"})

	AssignmentsCreated   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "assignments_created_total", Help: "Assignments offered to responders"})
	AssignmentsAccepted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "assignments_accepted_total", Help: "Assignments accepted"})
	AssignmentsCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "assignments_cancelled_total", Help: "Assignments cancelled or rejected"})
	ReassignmentsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "reassignments_total", Help: "Reassignment attempts after cancellation"})
	RequestsExhausted    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "requests_exhausted_total", Help: "Requests abandoned after the retry bound"})
	DispatchesCompleted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "respondr", Name: "dispatches_completed_total", Help: "Dispatch records closed"})

	RespondersOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "respondr", Name: "responders_online", Help: "Responders currently in the available pool"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "respondr", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "respondr",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
