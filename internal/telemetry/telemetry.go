package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service information
	ServiceName    = "github.com/irfndi/synthseries"
	ServiceVersion = "1.0.0"

	tracesPath = "/v1/traces"
	logsPath   = "/v1/logs"
)

// ErrUnknownExporter is returned for a trace exporter name we cannot build
var ErrUnknownExporter = errors.New("unknown trace exporter")

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:     true,
		DSN:         "", // Should be provided via env
		Environment: "development",
		Release:     ServiceVersion,
		SampleRate:  0.2,
	}
}

// InitTelemetry initializes Sentry
func InitTelemetry(config TelemetryConfig) error {
	if !config.Enabled {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		TracesSampleRate: config.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	return nil
}

// Flush flushes buffered events
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// TracingConfig selects and configures the span exporter
type TracingConfig struct {
	Exporter       string // none, otlp or stdout
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Writer receives stdout spans; nil means os.Stdout
	Writer io.Writer
}

// InitTracing installs a global tracer provider and returns its shutdown func.
// With the "none" exporter the global no-op provider stays in place.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "", "none":
		return noop, nil
	case "otlp":
		endpoint, perr := ParseOTLPEndpoint(cfg.OTLPEndpoint, tracesPath)
		if perr != nil {
			return noop, perr
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint.HostPort),
			otlptracehttp.WithURLPath(endpoint.URLPath),
		}
		if endpoint.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case "stdout":
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		exporter, err = stdouttrace.New(opts...)
	default:
		return noop, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
	if err != nil {
		return noop, fmt.Errorf("failed to create %s trace exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// OTLPEndpoint is a collector URL split the way the otlp*http exporters want it
type OTLPEndpoint struct {
	HostPort string
	URLPath  string
	Insecure bool
	URL      string
}

// ParseOTLPEndpoint splits a collector base URL and appends the signal path
// (/v1/traces or /v1/logs) unless the URL already ends with it.
func ParseOTLPEndpoint(raw string, signalPath string) (OTLPEndpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return OTLPEndpoint{}, fmt.Errorf("invalid OTLP endpoint %q: expected scheme://host:port", raw)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, signalPath) {
		path += signalPath
	}

	return OTLPEndpoint{
		HostPort: u.Host,
		URLPath:  path,
		Insecure: u.Scheme == "http",
		URL:      u.Scheme + "://" + u.Host + path,
	}, nil
}

// ParseOTLPLogsEndpoint is ParseOTLPEndpoint for the logs signal
func ParseOTLPLogsEndpoint(raw string) (OTLPEndpoint, error) {
	return ParseOTLPEndpoint(raw, logsPath)
}

// GetTracer returns a named tracer from the global provider
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetHTTPTracer returns the tracer used by the HTTP middleware
func GetHTTPTracer() trace.Tracer {
	return GetTracer(ServiceName + "/http")
}

// GetCacheTracer returns the tracer used by the generation cache
func GetCacheTracer() trace.Tracer {
	return GetTracer(ServiceName + "/cache")
}

// Shutdown shuts down the global telemetry provider
func Shutdown() error {
	sentry.Flush(2 * time.Second)
	return nil
}
