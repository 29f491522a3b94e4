package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	submissionsTotal    *prometheus.CounterVec
	submissionScore     *prometheus.HistogramVec
	gradingLatency      *prometheus.HistogramVec
	judgeFallbacksTotal *prometheus.CounterVec
	reviewCacheTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Assessment submissions by content type and outcome.",
		}, []string{"content_type", "outcome"})

		submissionScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_submission_score",
			Help:    "Distribution of final submission scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}, []string{"content_type"})

		gradingLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_grading_seconds",
			Help:    "Time spent grading a whole submission, judge calls included.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"content_type"})

		judgeFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_judge_fallbacks_total",
			Help: "Questions graded deterministically because the judge failed.",
		}, []string{"question_type"})

		reviewCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_review_cache_total",
			Help: "Submission review cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			submissionsTotal, submissionScore, gradingLatency, judgeFallbacksTotal, reviewCacheTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmissionScores exposes the final score histogram.
func SubmissionScores() *prometheus.HistogramVec {
	RegisterMetrics()
	return submissionScore
}

// GradingLatency exposes the per-submission grading histogram.
func GradingLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingLatency
}

// JudgeFallbacks exposes the judge fallback counter.
func JudgeFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return judgeFallbacksTotal
}

// ReviewCache exposes the review cache hit/miss counter.
func ReviewCache() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewCacheTotal
}
