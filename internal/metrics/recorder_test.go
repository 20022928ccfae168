package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/palmcam/internal/events"
)

// eventually polls until cond holds; bus delivery is asynchronous.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %s before deadline", what)
}

func delta(c prometheus.Collector, before float64) func() float64 {
	return func() float64 { return testutil.ToFloat64(c) - before }
}

func TestAttachRecordsTransitions(t *testing.T) {
	bus := events.New()
	var live int64 = 1
	detach := Attach(bus, func() int64 { return live })
	defer detach()

	active := transitions.WithLabelValues("starting", "active")
	got := delta(active, testutil.ToFloat64(active))

	bus.Publish(events.SessionStateChangedEvent{From: "starting", To: "active", RetryCount: 2})

	eventually(t, "transition counted", func() bool { return got() == 1 })
	if v := testutil.ToFloat64(sessionState.WithLabelValues("active")); v != 1 {
		t.Errorf("Expected active state gauge 1, got %v", v)
	}
	if v := testutil.ToFloat64(sessionState.WithLabelValues("inactive")); v != 0 {
		t.Errorf("Expected inactive state gauge 0, got %v", v)
	}
	if v := testutil.ToFloat64(retryCount); v != 2 {
		t.Errorf("Expected retry count 2, got %v", v)
	}
	if v := testutil.ToFloat64(liveHandles); v != 1 {
		t.Errorf("Expected live handles 1, got %v", v)
	}
}

func TestAttachRecordsAttemptsAndFrames(t *testing.T) {
	bus := events.New()
	detach := Attach(bus, nil)
	defer detach()

	over := attempts.WithLabelValues("overconstrained")
	gotOver := delta(over, testutil.ToFloat64(over))
	gotFrames := delta(framesCaptured, testutil.ToFloat64(framesCaptured))
	gotAdds := delta(deviceChanges.WithLabelValues("add"), testutil.ToFloat64(deviceChanges.WithLabelValues("add")))
	reloadErr := ladderReloads.WithLabelValues("error")
	gotReloadErr := delta(reloadErr, testutil.ToFloat64(reloadErr))

	bus.Publish(events.AcquisitionAttemptEvent{Outcome: "overconstrained", DurationMs: 12})
	bus.Publish(events.AcquisitionAttemptEvent{Outcome: "overconstrained", DurationMs: 8})
	bus.Publish(events.FrameCapturedEvent{Bytes: 40000})
	bus.Publish(events.DeviceChangedEvent{Action: "add"})
	bus.Publish(events.LadderReloadedEvent{Error: "bad facing"})

	eventually(t, "two attempts", func() bool { return gotOver() == 2 })
	eventually(t, "one frame", func() bool { return gotFrames() == 1 })
	eventually(t, "one device add", func() bool { return gotAdds() == 1 })
	eventually(t, "one failed reload", func() bool { return gotReloadErr() == 1 })
}

func TestDetachStopsRecording(t *testing.T) {
	bus := events.New()
	detach := Attach(bus, nil)
	detach()

	before := testutil.ToFloat64(framesCaptured)
	bus.Publish(events.FrameCapturedEvent{Bytes: 1})
	time.Sleep(50 * time.Millisecond)
	if got := testutil.ToFloat64(framesCaptured) - before; got != 0 {
		t.Errorf("Expected no frames after detach, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "palmcam_capture_session_state") {
		t.Error("Expected palmcam_capture_session_state in scrape output")
	}
}
