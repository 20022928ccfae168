// Package devices bridges kernel hotplug events to capability re-probes.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
	"github.com/smazurov/palmcam/pkg/linuxav/hotplug"
)

// DefaultSettle gives the kernel time to finish enumerating V4L2 nodes
// after a USB add before devices are re-read.
const DefaultSettle = time.Second

// Reprober refreshes the capabilities snapshot. *capture.Controller satisfies it.
type Reprober interface {
	Reprobe(ctx context.Context) capture.DeviceCapabilities
}

// Source delivers hotplug events. Run must return once ctx ends and close
// the channel when it returns. *hotplug.Monitor satisfies it.
type Source interface {
	Run(ctx context.Context, events chan<- hotplug.Event) error
	Close() error
}

// Watcher re-probes capture devices when video4linux nodes come and go.
type Watcher struct {
	reprober Reprober
	events   capture.Publisher
	logger   *slog.Logger
	settle   time.Duration
	now      func() time.Time
}

// NewWatcher creates a watcher. pub may be nil.
func NewWatcher(r Reprober, pub capture.Publisher, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		reprober: r,
		events:   pub,
		logger:   logger,
		settle:   DefaultSettle,
		now:      time.Now,
	}
}

// SetSettle changes the delay between the last event of a burst and the re-probe.
func (w *Watcher) SetSettle(d time.Duration) {
	w.settle = d
}

// Run opens a netlink monitor and watches until ctx ends. On hosts without
// netlink it returns hotplug.ErrUnsupported.
func (w *Watcher) Run(ctx context.Context) error {
	mon, err := hotplug.NewMonitor()
	if err != nil {
		return fmt.Errorf("devices: failed to open hotplug monitor: %w", err)
	}
	mon.AddSubsystemFilter(hotplug.SubsystemVideo4Linux)
	return w.Watch(ctx, mon)
}

// Watch consumes src until ctx ends or src fails. Bursts of add/remove
// events are coalesced into one re-probe after the settle delay.
func (w *Watcher) Watch(ctx context.Context, src Source) error {
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan hotplug.Event, 16)
	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx, ch) }()

	w.logger.Info("Hotplug monitoring started", "subsystem", hotplug.SubsystemVideo4Linux)

	var (
		pending *hotplug.Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				err := <-runErr
				if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					w.logger.Info("Hotplug monitoring stopped")
					return nil
				}
				return fmt.Errorf("devices: hotplug source failed: %w", err)
			}
			if ev.Subsystem != hotplug.SubsystemVideo4Linux || !ev.Topology() {
				continue
			}
			w.logger.Debug("Hotplug event", "action", ev.Action, "device", ev.DevName)
			pending = &ev
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if pending != nil {
				w.apply(ctx, *pending)
				pending = nil
			}

		case <-ctx.Done():
			for range ch {
			}
			<-runErr
			w.logger.Info("Hotplug monitoring stopped")
			return nil
		}
	}
}

func (w *Watcher) apply(ctx context.Context, ev hotplug.Event) {
	caps := w.reprober.Reprobe(ctx)
	w.logger.Info("Capture devices changed",
		"action", ev.Action,
		"device", ev.DeviceNode(),
		"devices", len(caps.Devices))

	if w.events == nil {
		return
	}
	w.events.Publish(events.DeviceChangedEvent{
		Action:     ev.Action,
		DeviceName: path.Base(ev.DeviceNode()),
		DevicePath: ev.DeviceNode(),
		Devices:    len(caps.Devices),
		Timestamp:  w.now().Format(time.RFC3339),
	})
}
