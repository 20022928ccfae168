package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/palmcam/internal/api/models"
	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
	"github.com/smazurov/palmcam/internal/logging"
	"github.com/smazurov/palmcam/internal/version"
	"github.com/smazurov/palmcam/ui"
)

// Controller is the capture session surface the API drives.
// *capture.Controller satisfies it.
type Controller interface {
	Start(ctx context.Context) error
	Retry(ctx context.Context) error
	Stop()
	Capture() (*capture.CapturedFrame, error)
	SetZoom(level float64) (float64, error)
	Reprobe(ctx context.Context) capture.DeviceCapabilities
	Ladder() []capture.ConstraintProfile
	Diagnostics() capture.Diagnostics
}

// Options configures the API server.
type Options struct {
	Controller     Controller
	EventBus       *events.Bus
	MetricsHandler http.Handler // Optional Prometheus scrape handler
	TLSCert        string
	TLSKey         string
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	controller Controller
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates an API server using Go 1.22+ native routing.
func NewServer(opts *Options) (*Server, error) {
	if opts == nil || opts.Controller == nil {
		return nil, errors.New("api: controller is required")
	}

	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("palmcam API", version.String())
	config.Info.Description = "Camera acquisition and still capture for palm reading"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	bus := opts.EventBus
	if bus == nil {
		bus = events.New()
	}

	server := &Server{
		api:        api,
		mux:        mux,
		controller: opts.Controller,
		eventBus:   bus,
		options:    opts,
		logger:     logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()

	if frontendHandler, err := ui.Handler(); err == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			frontendHandler.ServeHTTP(w, r)
		})
	}

	return server, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// TLSEnabled reports whether Start serves HTTPS.
func (s *Server) TLSEnabled() bool {
	return s.options.TLSCert != "" && s.options.TLSKey != ""
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	scheme := "http"
	if s.TLSEnabled() {
		scheme = "https"
	}
	s.logger.Info("Starting palmcam API server", "addr", addr, "tls", s.TLSEnabled())
	s.logger.Info("OpenAPI documentation available", "url", scheme+"://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	var err error
	if s.TLSEnabled() {
		err = s.httpServer.ListenAndServeTLS(s.options.TLSCert, s.options.TLSKey)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				Modified:  info.Modified,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerCaptureRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}
