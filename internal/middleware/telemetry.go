// Package middleware provides the gin middleware shared by the HTTP API:
// request IDs, request logging and OpenTelemetry spans.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/synthseries/internal/telemetry"
)

const healthPath = "/health"

// TelemetryMiddleware annotates the active server span with request details.
// When no upstream middleware (otelgin) has started one, it starts its own.
func TelemetryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// health probes are traced by HealthCheckTelemetryMiddleware
		if c.Request.URL.Path == healthPath {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
			ctx, span = telemetry.GetHTTPTracer().Start(ctx,
				fmt.Sprintf("HTTP %s %s", c.Request.Method, c.Request.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			c.Request = c.Request.WithContext(ctx)
		}
		span.SetAttributes(requestAttributes(c)...)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int64("http.response.size_bytes", int64(c.Writer.Size())),
			attribute.String("http.response.header.content_type", c.Writer.Header().Get("Content-Type")),
		)
		finishSpan(span, status, time.Since(start), fmt.Sprintf("HTTP %d", status))
	}
}

// HealthCheckTelemetryMiddleware traces health probes as their own spans so
// they can be filtered from request traces
func HealthCheckTelemetryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.GetHTTPTracer().Start(c.Request.Context(),
			"Health "+c.Request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.url", c.Request.URL.String()),
			attribute.String("span.type", "health_check"),
		)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.String("health.status", healthStatus(status)))
		finishSpan(span, status, time.Since(start), fmt.Sprintf("health check returned %d", status))
	}
}

// RecordError records an error on the current span
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.SetAttributes(toAttribute(key, value))
	}
}

func requestAttributes(c *gin.Context) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.host", c.Request.Host),
		attribute.String("http.user_agent", c.Request.UserAgent()),
		attribute.String("http.client_ip", c.ClientIP()),
	}
	if requestID := GetRequestID(c); requestID != "" {
		attrs = append(attrs, attribute.String("http.request_id", requestID))
	}
	if route := c.FullPath(); route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	return attrs
}

func finishSpan(span trace.Span, status int, elapsed time.Duration, description string) {
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int64("http.response.time_ms", elapsed.Milliseconds()),
	)
	if status >= 400 {
		span.SetStatus(codes.Error, description)
		span.RecordError(fmt.Errorf("%s", description))
		return
	}
	span.SetStatus(codes.Ok, description)
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", value))
	}
}

func healthStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "healthy"
	case code >= 400 && code < 500:
		return "client_error"
	case code >= 500:
		return "server_error"
	default:
		return "unknown"
	}
}
