// Package metrics exports capture session metrics to Prometheus.
//
// Values are derived from bus events, so the controller never talks to
// Prometheus directly. See [Attach].
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/palmcam/internal/capture"
)

const namespace = "palmcam"

var (
	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "session_state",
		Help:      "1 for the current session state, 0 otherwise",
	}, []string{"state"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "transitions_total",
		Help:      "Session state transitions",
	}, []string{"from", "to"})

	retryCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "retry_count",
		Help:      "Failed attempts since the last success",
	})

	attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "attempts_total",
		Help:      "Constraint profile attempts by outcome",
	}, []string{"outcome"})

	attemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "attempt_duration_seconds",
		Help:      "Time spent opening one constraint profile",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames captured and encoded",
	})

	frameBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frame_bytes",
		Help:      "Encoded size of captured frames",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 8),
	})

	liveHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "live_handles",
		Help:      "Stream handles currently held",
	})

	deviceChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "devices",
		Name:      "changes_total",
		Help:      "Capture device add and remove events",
	}, []string{"action"})

	ladderReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "config",
		Name:      "ladder_reloads_total",
		Help:      "Constraint ladder reloads by result",
	}, []string{"result"})
)

var states = []capture.State{
	capture.StateInactive,
	capture.StateStarting,
	capture.StateActive,
	capture.StateError,
}

func init() {
	setState(capture.StateInactive)
}

func setState(current capture.State) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		sessionState.WithLabelValues(string(s)).Set(v)
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
