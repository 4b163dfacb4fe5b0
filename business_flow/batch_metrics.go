package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	smsDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_dispatch_total",
			Help: "Total number of gateway dispatches partitioned by classified status",
		},
		[]string{"status"},
	)

	smsDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sms_dispatch_duration_seconds",
			Help:    "Gateway dispatch latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	smsRowsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_rows_rejected_total",
			Help: "Spreadsheet rows dropped during normalization",
		},
	)

	// Finished batches partitioned by template and outcome (succeeded, failed, canceled)
	smsBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_batches_total",
			Help: "Total number of send batches run",
		},
		[]string{"template", "outcome"},
	)
)

func batchOutcome(canceled, allSucceeded bool) string {
	switch {
	case canceled:
		return "canceled"
	case allSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}
