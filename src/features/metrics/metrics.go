package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results reported for a single watcher invocation.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultInvalid = "invalid"
	ResultTimeout = "timeout"
	ResultPanic   = "panic"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fswatcher_events_total",
			Help: "File events detected by snapshot diffing",
		},
		[]string{"kind"},
	)

	WatcherInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fswatcher_watcher_invocations_total",
			Help: "Watcher handle invocations by outcome",
		},
		[]string{"watcher", "result"},
	)

	WatcherDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fswatcher_watcher_duration_seconds",
			Help:    "Time spent in a watcher handle invocation",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"watcher"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fswatcher_cycle_duration_seconds",
			Help:    "Time to capture, diff and dispatch one polling cycle",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
		},
	)

	SnapshotFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fswatcher_snapshot_files",
			Help: "Regular files in the latest snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		WatcherInvocationsTotal,
		WatcherDuration,
		CycleDuration,
		SnapshotFiles,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
