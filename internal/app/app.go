package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"salespulse/internal/config"
	"salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	customMiddleware "salespulse/internal/middleware"
	"salespulse/internal/sales"
	"salespulse/internal/scheduler"
	"salespulse/internal/services"
	handlers "salespulse/internal/transport/http"
	ws "salespulse/internal/websocket"
	"salespulse/pkg/contracts"
)

// systemMetricsInterval is how often runtime statistics are sampled
// into the OpenTelemetry gauges.
const systemMetricsInterval = 30 * time.Second

// Application wires configuration, services, background workers and the
// HTTP router into one runnable unit.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	WebSocketHub  *ws.Hub
	SalesService  *services.SalesService
	HealthService *services.HealthService
	Watcher       *scheduler.DatasetWatcher
	Collector     *infrastructure.SystemMetricsCollector
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders

	// otel carries the shared business metrics; services record into the
	// same instruments the HTTP middleware does.
	otel *customMiddleware.OTelMiddleware

	// done is closed once Stop has finished so Run can exit when the
	// application is stopped directly.
	done     chan struct{}
	stopOnce sync.Once
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Sales     *services.SalesService
	Health    *services.HealthService
	WebSocket *ws.Hub
	Watcher   *scheduler.DatasetWatcher
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.NewPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		done:          make(chan struct{}),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the service graph in dependency order.
func (a *Application) initializeServices() error {
	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	a.otel = otelMiddleware
	metrics := otelMiddleware.Metrics()

	// WebSocket hub fans dataset events out to connected clients
	hub := ws.NewHub(a.Logger, metrics)
	hub.Start()
	a.WebSocketHub = hub

	loader := sales.NewLoader(a.Paths.DataFile, a.Logger, metrics)

	salesService := services.NewSalesService(loader, a.Paths, hub, a.Logger, metrics)
	a.SalesService = salesService

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval)
	if err != nil {
		return fmt.Errorf("failed to initialize system metrics collector: %w", err)
	}
	a.Collector = collector

	healthService := services.NewHealthService(contracts.Version, a.Paths, hub, collector, a.Logger)
	a.HealthService = healthService

	watcher := scheduler.NewDatasetWatcher(salesService, a.Config.Data, a.Logger)
	a.Watcher = watcher

	a.Services = &ServiceContainer{
		Sales:     salesService,
		Health:    healthService,
		WebSocket: hub,
		Watcher:   watcher,
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that won't interfere with WebSocket upgrades.
	// These are safe because they don't wrap the ResponseWriter.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route with minimal middleware and tracing. Must be
	// registered before the full group so the upgrade sees the raw
	// connection.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Everything else runs under the full middleware stack
	r.Group(func(r chi.Router) {
		r.Use(a.otel.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus metrics endpoint outside the middleware group so
	// scrapes skip tracing and rate limiting
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := errors.NewErrorHandler(a.Logger, false)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(validation.ValidateRequest)

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		salesHandler := handlers.NewSalesHandler(a.SalesService, validation, a.Logger, errorHandler)
		r.Mount("/sales", salesHandler.Routes())

		reportsHandler := handlers.NewReportsHandler(a.SalesService, validation, a.Logger, errorHandler)
		r.Mount("/reports", reportsHandler.Routes())
	})
}

// getCORSConfig builds the CORS policy from the security configuration.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	corsConfig := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.isDevelopmentMode() {
		// Development mode: allow common local frontends
		corsConfig.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}
		a.Logger.Info("CORS configured for development mode",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins))
	} else {
		corsConfig.AllowedOrigins = []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}

		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			corsConfig.AllowedOrigins = append(corsConfig.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}

		a.Logger.Info("CORS configured for production mode",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins))
	}

	return corsConfig
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	if env := os.Getenv("ENVIRONMENT"); env == "development" {
		return true
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server and the background workers. A server
// failure cancels the supplied context so Run can begin shutdown.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "application paths",
		slog.String("base_dir", a.Paths.BaseDir),
		slog.String("data_file", a.Paths.DataFile),
		slog.String("reports_dir", a.Paths.ReportsDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	// Background workers
	go a.Collector.Start(ctx)
	if err := a.Watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dataset watcher: %w", err)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application. It is safe to call more than
// once; only the first call performs the shutdown.
func (a *Application) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		err = a.stop(ctx)
		close(a.done)
	})
	return err
}

func (a *Application) stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Watcher.Stop()
	a.Collector.Stop()
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted or stopped.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		// The server failed; shut the rest down.
	case <-a.done:
		// Stop was called directly.
		return nil
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("host", r.Host))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// No origin header means a non-browser client or same origin
			if origin == "" {
				return true
			}

			if a.isDevelopmentMode() {
				a.Logger.DebugContext(ctx, "websocket origin check - development mode, allowing",
					slog.String("origin", origin))
				return true
			}

			corsConfig := a.getCORSConfig()
			for _, allowed := range corsConfig.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin),
				slog.Any("allowed_origins", corsConfig.AllowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	ws.ServeWS(a.WebSocketHub, conn, reqID, a.Config.WebSocket)

	a.Logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))
}

// performStartupHealthCheck verifies critical paths and resources.
// Failures are warnings; the service still starts so the API can report
// a useful readiness state.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"data":    a.Paths.DataDir,
		"reports": a.Paths.ReportsDir,
		"logs":    a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if !a.Paths.DataFileExists() {
		warnings = append(warnings, fmt.Sprintf("sales data file not found: %s", a.Paths.DataFile))
		a.Logger.WarnContext(ctx, "sales data file missing at startup",
			slog.String("path", a.Paths.DataFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("%s", strings.Join(warnings, "; "))
	}
	return nil
}
