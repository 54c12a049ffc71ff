package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpilot_publish_attempts_total",
		Help: "Publish API calls per platform, retries included.",
	}, []string{"platform"})

	PublishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpilot_publish_results_total",
		Help: "Terminal per-platform publish results by status.",
	}, []string{"platform", "status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "postpilot_publish_run_seconds",
		Help:    "Wall time of one publish job run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	RunsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_publish_runs_skipped_total",
		Help: "Trigger invocations that found the lock held.",
	})
)
