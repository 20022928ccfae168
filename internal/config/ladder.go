package config

import (
	"log/slog"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
)

// LadderSetter installs a constraint ladder. *capture.Controller satisfies it.
type LadderSetter interface {
	SetLadder(profiles []capture.ConstraintProfile) error
}

// ProfilesWatcher reloads the constraint ladder when its file changes.
type ProfilesWatcher = Watcher[[]capture.ConstraintProfile]

// WatchProfiles starts a watcher that installs every valid revision of the
// profiles file into setter. A broken revision leaves the previous ladder
// in place. Each reload is reported on pub, successful or not.
func WatchProfiles(path string, setter LadderSetter, pub capture.Publisher, logger *slog.Logger) (*ProfilesWatcher, error) {
	report := func(profiles int, err error) {
		if pub == nil {
			return
		}
		ev := events.LadderReloadedEvent{
			Profiles:  profiles,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		pub.Publish(ev)
	}

	w := NewConfigWatcher(path, LoadProfiles, logger,
		WithErrorHandler[[]capture.ConstraintProfile](func(err error) {
			report(0, err)
		}),
	)
	w.OnReload(func(profiles []capture.ConstraintProfile) {
		if err := setter.SetLadder(profiles); err != nil {
			w.logger.Warn("Rejected constraint ladder", "error", err)
			report(0, err)
			return
		}
		report(len(profiles), nil)
	})

	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
