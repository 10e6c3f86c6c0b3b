package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// GenerationTracer wraps generation work in Sentry spans.
// Without an initialized Sentry client the spans are created but never sent.
type GenerationTracer struct{}

// NewGenerationTracer creates a new GenerationTracer
func NewGenerationTracer() *GenerationTracer {
	return &GenerationTracer{}
}

// TraceGeneration starts a span for a single series generation
func (gt *GenerationTracer) TraceGeneration(ctx context.Context, frequency string, length int, transition bool) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "series.generate")
	if frequency == "" {
		frequency = "sampled"
	}
	span.SetTag("frequency", frequency)
	span.SetData("length", length)
	span.SetData("transition", transition)
	return span.Context(), span
}

// RecordGenerationResult closes out a generation span
func (gt *GenerationTracer) RecordGenerationResult(span *sentry.Span, result GenerationResult) {
	span.SetTag("resolved_frequency", result.Frequency)
	span.SetData("rows", result.Rows)
	span.SetData("seed", result.Seed)
	span.SetData("cache_hit", result.CacheHit)
	span.SetData("duration_ms", result.Duration.Milliseconds())
	finish(span, result.Err)
}

// TraceBatch starts a span for a batch of generations
func (gt *GenerationTracer) TraceBatch(ctx context.Context, jobs int, concurrency int) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "series.batch")
	span.SetData("jobs", jobs)
	span.SetData("concurrency", concurrency)
	return span.Context(), span
}

// RecordBatchResult closes out a batch span
func (gt *GenerationTracer) RecordBatchResult(span *sentry.Span, completed int, duration time.Duration, err error) {
	span.SetData("completed", completed)
	span.SetData("duration_ms", duration.Milliseconds())
	finish(span, err)
}

// TraceDiagnostics starts a span for indicator computation over a series
func (gt *GenerationTracer) TraceDiagnostics(ctx context.Context, length int, period int) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "series.diagnostics")
	span.SetData("length", length)
	span.SetData("period", period)
	return span.Context(), span
}

// RecordDiagnosticsResult closes out a diagnostics span
func (gt *GenerationTracer) RecordDiagnosticsResult(span *sentry.Span, err error) {
	finish(span, err)
}

func finish(span *sentry.Span, err error) {
	if err != nil {
		span.SetTag("error", err.Error())
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}

// GenerationResult describes a finished generation for telemetry
type GenerationResult struct {
	Frequency string
	Rows      int
	Seed      uint64
	CacheHit  bool
	Duration  time.Duration
	Err       error
}
