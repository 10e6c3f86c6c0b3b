package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/synthseries/internal/api"
	"github.com/irfndi/synthseries/internal/cache"
	"github.com/irfndi/synthseries/internal/config"
	"github.com/irfndi/synthseries/internal/database"
	"github.com/irfndi/synthseries/internal/logging"
	"github.com/irfndi/synthseries/internal/middleware"
	"github.com/irfndi/synthseries/internal/services"
	"github.com/irfndi/synthseries/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newStandardLogger(cfg)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logger.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown logger: %v\n", err)
		}
	}()

	// Create logrus logger for services that require it
	logrusLogger := logging.NewLogrusLogger(cfg.LogLevel)

	// Initialize error reporting
	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:     cfg.Telemetry.SentryEnabled,
		DSN:         cfg.Telemetry.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Telemetry.ServiceVersion,
		SampleRate:  cfg.Telemetry.SampleRate,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	shutdownTracing, err := telemetry.InitTracing(context.Background(), telemetry.TracingConfig{
		Exporter:       cfg.Telemetry.TraceExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logrusLogger.WithError(err).Warn("Failed to shutdown tracing")
		}
	}()

	deps := api.Dependencies{
		Analyzer: services.NewDiagnosticsService(cfg.Generation.OutputDecimals, logrusLogger),
		Decimals: cfg.Generation.OutputDecimals,
		Version:  cfg.Telemetry.ServiceVersion,
		Logger:   logrusLogger,
	}

	// Redis is optional; without it seeded generations are simply recomputed
	var store services.GenerationStore
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis, logrusLogger)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		genCache := cache.NewGenerationCache(redisClient.Client, cfg.Generation.CacheTTLDuration(), logrusLogger)
		defer genCache.LogStats()

		store = services.NewGuardedStore(genCache, services.CircuitBreakerConfig{}, logrusLogger)
		deps.Cache = genCache
		deps.Redis = redisClient
	} else {
		logrusLogger.Info("Redis disabled, generation cache off")
	}
	generator := services.NewGeneratorService(cfg.Generation, store, logrusLogger)
	generator.SetEventLogger(logger)
	deps.Generator = generator

	router := newRouter(cfg, logger, deps)
	srv := newHTTPServer(cfg.Server.Port, router)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "signal received: "+sig.String())
	}

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrusLogger.Info("Server exited gracefully")
	return nil
}

// newStandardLogger ships logs over OTLP when enabled, else writes JSON to stdout
func newStandardLogger(cfg *config.Config) *logging.StandardLogger {
	if !cfg.Telemetry.OTLPEnabled {
		return logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	}

	endpoint, err := telemetry.ParseOTLPLogsEndpoint(cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
		logger.WithError(err).Warn("Invalid OTLP endpoint, logging to stdout")
		return logger
	}

	return logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        true,
		Endpoint:       endpoint.HostPort,
		URLPath:        endpoint.URLPath,
		Insecure:       endpoint.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
}

func newRouter(cfg *config.Config, logger *logging.StandardLogger, deps api.Dependencies) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Telemetry.SentryEnabled {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         2 * time.Second,
		}))
	}
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health"
	})))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.TelemetryMiddleware())

	api.SetupRoutes(router, deps)
	return router
}

// newHTTPServer applies the server timeouts
func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
}
