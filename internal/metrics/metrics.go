package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Process outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeNoIdentity = "no_identity"
	OutcomeIncomplete = "incomplete"
	OutcomeNoContact  = "no_contact"
	OutcomeFailed     = "failed"
)

// Prometheus metrics for the notification pipeline.
var (
	ProcessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixauto_process_total",
			Help: "Callbacks run through the notification pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	ProcessDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixauto_process_duration_seconds",
			Help:    "Duration of a full pipeline run",
			Buckets: prometheus.DefBuckets,
		},
	)

	DirectoryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixauto_directory_failures_total",
			Help: "Customer directory lookups that failed and were absorbed",
		},
		[]string{"directory"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixauto_dispatch_total",
			Help: "Notification dispatch attempts, by channel and result",
		},
		[]string{"channel", "result"},
	)

	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixauto_callbacks_total",
			Help: "Callback records consumed by the worker, by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers every pipeline metric on reg. Metrics that are already
// registered on reg are left in place.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ProcessTotal,
		ProcessDuration,
		DirectoryFailuresTotal,
		DispatchTotal,
		CallbacksTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
