package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_analyses_total",
			Help: "Total number of completed fraud analyses by recommendation",
		},
		[]string{"recommendation"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_analysis_duration_seconds",
			Help:    "End-to-end fraud analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	detectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraud_detector_duration_seconds",
			Help:    "Per-detector analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	detectorTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_detector_timeouts_total",
			Help: "Detector runs that exceeded their deadline and were excluded",
		},
		[]string{"detector"},
	)

	detectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_detector_errors_total",
			Help: "Detector runs that returned an error",
		},
		[]string{"detector"},
	)

	riskScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_risk_score",
			Help:    "Distribution of overall risk scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
