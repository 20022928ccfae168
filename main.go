package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/palmcam/cmd"
	"github.com/smazurov/palmcam/internal/api"
	"github.com/smazurov/palmcam/internal/config"
	"github.com/smazurov/palmcam/internal/devices"
	"github.com/smazurov/palmcam/internal/events"
	"github.com/smazurov/palmcam/internal/led"
	"github.com/smazurov/palmcam/internal/logging"
	"github.com/smazurov/palmcam/internal/metrics"
	"github.com/smazurov/palmcam/internal/systemd"
	"github.com/smazurov/palmcam/internal/version"
	"github.com/smazurov/palmcam/pkg/linuxav/hotplug"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var cli humacli.CLI
	var current *cmd.Options

	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		current = opts

		configErr := config.LoadConfig(opts, cli.Root())
		opts.InitLogging()
		logger := logging.GetLogger("main")
		if configErr != nil {
			logger.Error("Failed to load config", "error", configErr)
			os.Exit(1)
		}

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.NewLogEntryEvent(entry))
		})

		tlsEnabled := opts.TLSCert != "" && opts.TLSKey != ""
		secure := api.SecureOrigin(opts.Port, tlsEnabled)
		if !secure {
			logger.Warn("Listening on a non-loopback address without TLS; browsers will refuse camera access",
				"addr", opts.Port)
		}

		controller, err := opts.NewController(eventBus, func() bool { return secure })
		if err != nil {
			logger.Error("Failed to create capture controller", "error", err)
			os.Exit(1)
		}

		server, err := api.NewServer(&api.Options{
			Controller:     controller,
			EventBus:       eventBus,
			MetricsHandler: metrics.Handler(),
			TLSCert:        opts.TLSCert,
			TLSKey:         opts.TLSKey,
		})
		if err != nil {
			logger.Error("Failed to create API server", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		var detachMetrics, detachIndicator, unfollowSession func()
		var profilesWatcher *config.ProfilesWatcher
		var loggingWatcher *config.LoggingWatcher

		hooks.OnStart(func() {
			logger.Info("Starting palmcam", "version", version.String(), "addr", opts.Port)

			detachMetrics = metrics.Attach(eventBus, controller.LiveHandles)
			unfollowSession = notifier.FollowSession(eventBus)
			if opts.FeaturesLedIndicator {
				ledLogger := logging.GetLogger("led")
				if indicator := led.NewIndicator(led.New(ledLogger), opts.FeaturesLedName, ledLogger); indicator != nil {
					detachIndicator = indicator.Attach(eventBus)
				} else {
					logger.Warn("LED indicator enabled but no LED is available")
				}
			}
			caps := controller.Reprobe(ctx)
			logger.Info("Initial capability probe",
				"devices", len(caps.Devices),
				"permission", caps.HasPermission,
				"viability", caps.Viability())

			watcher := devices.NewWatcher(controller, eventBus, logging.GetLogger("devices"))
			go func() {
				if runErr := watcher.Run(ctx); runErr != nil {
					if errors.Is(runErr, hotplug.ErrUnsupported) {
						logger.Info("Hotplug monitoring unavailable on this host")
						return
					}
					logger.Warn("Hotplug monitoring stopped", "error", runErr)
				}
			}()

			if opts.CaptureProfilesFile != "" {
				var watchErr error
				profilesWatcher, watchErr = config.WatchProfiles(opts.CaptureProfilesFile, controller, eventBus, logging.GetLogger("config"))
				if watchErr != nil {
					logger.Warn("Failed to watch profiles file", "path", opts.CaptureProfilesFile, "error", watchErr)
				}
			}

			if opts.Config != "" {
				var watchErr error
				loggingWatcher, watchErr = config.WatchLogging(opts.Config, logging.GetLogger("config"))
				if watchErr != nil {
					logger.Warn("Failed to watch config file", "path", opts.Config, "error", watchErr)
				}
			}

			go func() {
				if wdErr := notifier.RunWatchdog(ctx); wdErr != nil {
					logger.Warn("Watchdog disabled", "error", wdErr)
				}
			}()
			notifier.Status("capture inactive")
			notifier.Ready()

			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Release the camera once no request can reach it
			if closeErr := controller.Close(); closeErr != nil {
				logger.Error("Error closing capture controller", "error", closeErr)
			}
			cancel()
			if profilesWatcher != nil {
				if stopErr := profilesWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping profiles watcher", "error", stopErr)
				}
			}
			if loggingWatcher != nil {
				if stopErr := loggingWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
			for _, detach := range []func(){detachIndicator, unfollowSession, detachMetrics} {
				if detach != nil {
					detach()
				}
			}
		})
	})

	options := func() *cmd.Options { return current }
	cli.Root().Version = version.Get().Long()
	cli.Root().AddCommand(cmd.CreateProbeCmd(options))
	cli.Root().AddCommand(cmd.CreateSnapshotCmd(options))

	cli.Run()
}
