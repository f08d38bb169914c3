package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	autoGradesTotal       *prometheus.CounterVec
	leaderboardCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submission writes grouped by assignment mode and finality.",
		}, []string{"mode", "final"})

		autoGradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auto_grades_total",
			Help: "Final submissions by auto-grading outcome.",
		}, []string{"outcome"})

		leaderboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsTotal,
			autoGradesTotal,
			leaderboardCacheTotal,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Submissions exposes the submission write counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// AutoGrades exposes the auto-grading outcome counter. Outcomes are
// "graded" and "manual".
func AutoGrades() *prometheus.CounterVec {
	RegisterMetrics()
	return autoGradesTotal
}

// LeaderboardCache exposes the leaderboard cache hit/miss counter.
func LeaderboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardCacheTotal
}
