package metrics

import (
	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
)

// Subscriber is the subscription half of the event bus.
type Subscriber interface {
	Subscribe(handler any) func()
}

// Attach subscribes the Prometheus collectors to bus. live reports the
// controller's outstanding handle count and may be nil. The returned
// function detaches every subscription.
func Attach(bus Subscriber, live func() int64) func() {
	sampleLive := func() {
		if live != nil {
			liveHandles.Set(float64(live()))
		}
	}

	unsubs := []func(){
		bus.Subscribe(func(e events.SessionStateChangedEvent) {
			transitions.WithLabelValues(e.From, e.To).Inc()
			setState(capture.State(e.To))
			retryCount.Set(float64(e.RetryCount))
			sampleLive()
		}),
		bus.Subscribe(func(e events.AcquisitionAttemptEvent) {
			attempts.WithLabelValues(e.Outcome).Inc()
			attemptDuration.Observe(float64(e.DurationMs) / 1000)
		}),
		bus.Subscribe(func(e events.FrameCapturedEvent) {
			framesCaptured.Inc()
			frameBytes.Observe(float64(e.Bytes))
		}),
		bus.Subscribe(func(e events.DeviceChangedEvent) {
			deviceChanges.WithLabelValues(e.Action).Inc()
		}),
		bus.Subscribe(func(e events.LadderReloadedEvent) {
			result := "ok"
			if e.Error != "" {
				result = "error"
			}
			ladderReloads.WithLabelValues(result).Inc()
		}),
	}
	sampleLive()

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
