package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xes_uploads_total",
		Help: "Total number of uploaded logs, labelled by outcome.",
	}, []string{"status"})

	EventsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xes_events_decoded_total",
		Help: "Total number of events decoded from uploaded logs.",
	})

	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xes_rows_dropped_total",
		Help: "Total number of events excluded from aggregates, labelled by reason.",
	}, []string{"reason"})

	AnalysesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xes_analyses_rejected_total",
		Help: "Total number of analyses rejected due to a full queue.",
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xes_analysis_duration_ms",
		Help:    "Decode plus aggregation latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xes_queue_utilization_ratio",
		Help: "Current analysis queue utilization (0–1).",
	})
)
