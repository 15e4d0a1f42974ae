package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeMissing   = "missing"
	OutcomePanicked  = "panicked"
)

var (
	// SequenceTasks counts compute-sequence task executions by outcome
	SequenceTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colorsort_sequence_tasks_total",
		Help: "Compute sequence task executions by outcome",
	}, []string{"outcome"})

	// SequenceTaskDuration observes end to end task duration
	SequenceTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "colorsort_sequence_task_duration_seconds",
		Help:    "Duration of compute sequence tasks",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	// RankerDuration observes ranking duration per ranker implementation
	RankerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "colorsort_ranker_duration_seconds",
		Help:    "Duration of similarity ranking",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"ranker"})

	// RankedImages observes how many images each ranking covered
	RankedImages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "colorsort_ranked_images",
		Help:    "Number of images in a ranking request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9),
	})

	// SequencesRequested counts accepted sequence requests
	SequencesRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colorsort_sequences_requested_total",
		Help: "Color sort sequences requested",
	})

	// SequencesRepaired counts records rewritten or deleted by consistency maintenance
	SequencesRepaired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colorsort_sequences_repaired_total",
		Help: "Sequences rewritten or deleted after collection changes",
	}, []string{"event"})

	// StalePendingDeleted counts pending records removed because their task was lost
	StalePendingDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colorsort_stale_pending_deleted_total",
		Help: "Pending sequences deleted after exceeding the pending timeout",
	})

	// StreamMessagesReclaimed counts stream messages taken over from dead consumers
	StreamMessagesReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colorsort_stream_messages_reclaimed_total",
		Help: "Stream messages claimed after their consumer stopped responding",
	}, []string{"stream"})

	hostInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "colorsort_host_info",
		Help: "Host the process runs on",
	}, []string{"hostname", "go_version", "container_runtime"})
)
