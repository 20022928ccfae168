package config

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
)

type ladderRecorder struct {
	mu      sync.Mutex
	ladders [][]capture.ConstraintProfile
	reject  error
}

func (r *ladderRecorder) SetLadder(p []capture.ConstraintProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject != nil {
		return r.reject
	}
	r.ladders = append(r.ladders, p)
	return nil
}

type reloadSink chan events.LadderReloadedEvent

func (s reloadSink) Publish(ev events.Event) {
	if e, ok := ev.(events.LadderReloadedEvent); ok {
		s <- e
	}
}

func waitReload(t *testing.T, sink reloadSink) events.LadderReloadedEvent {
	t.Helper()
	select {
	case ev := <-sink:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ladder reload")
		return events.LadderReloadedEvent{}
	}
}

func TestWatchProfilesInstallsLadder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	writeFile(t, path, sampleProfiles)

	rec := &ladderRecorder{}
	sink := make(reloadSink, 4)
	w, err := WatchProfiles(path, rec, sink, newTestLogger())
	if err != nil {
		t.Fatalf("WatchProfiles failed: %v", err)
	}
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "[[profiles]]\nname = \"only\"\n")
	ev := waitReload(t, sink)
	if ev.Error != "" {
		t.Fatalf("Expected successful reload, got error %q", ev.Error)
	}
	if ev.Profiles != 1 {
		t.Errorf("Expected 1 profile, got %d", ev.Profiles)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ladders) != 1 || rec.ladders[0][0].Name != "only" {
		t.Errorf("Expected ladder [only], got %v", rec.ladders)
	}
}

func TestWatchProfilesReportsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	writeFile(t, path, sampleProfiles)

	rec := &ladderRecorder{}
	sink := make(reloadSink, 4)
	w, err := WatchProfiles(path, rec, sink, newTestLogger())
	if err != nil {
		t.Fatalf("WatchProfiles failed: %v", err)
	}
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "[[profiles]]\nfacing = \"sideways\"\n")
	ev := waitReload(t, sink)
	if ev.Error == "" {
		t.Error("Expected reload error, got none")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ladders) != 0 {
		t.Errorf("Expected no ladder installed, got %d", len(rec.ladders))
	}
}

func TestWatchProfilesReportsRejection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	writeFile(t, path, sampleProfiles)

	rec := &ladderRecorder{reject: errors.New("busy")}
	sink := make(reloadSink, 4)
	w, err := WatchProfiles(path, rec, sink, newTestLogger())
	if err != nil {
		t.Fatalf("WatchProfiles failed: %v", err)
	}
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, sampleProfiles)
	ev := waitReload(t, sink)
	if ev.Error != "busy" {
		t.Errorf("Expected error busy, got %q", ev.Error)
	}
}
