// Package tracer provides the tracing abstractions for the query governor.
// It ships a no-op default and an OpenTelemetry adapter; span attributes
// follow the OTel database semantic conventions, extended with the
// governor's limit and estimate attributes.
package tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans around governed operations.
type Tracer interface {
	// StartSpan starts a new tracing span with the given name
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents an active tracing span that must be ended when complete.
type Span interface {
	// SetAttributes sets key-value attributes on the span
	SetAttributes(attrs ...attribute.KeyValue)
	// RecordError records an error that occurred during the span
	RecordError(err error)
	// SetStatus sets the status code and description of the span
	SetStatus(code codes.Code, description string)
	// End marks the span as complete
	End()
}

// NoopTracer does nothing. It is the default when tracing is not configured.
type NoopTracer struct{}

// StartSpan returns the context unchanged with a no-op span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

// NoopSpan is a span that does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (n *NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (n *NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (n *NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (n *NoopSpan) End() {}

// OtelTracer implements Tracer over an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer creates an OpenTelemetry tracer adapter.
// The provided tracer must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts a new OpenTelemetry span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &OtelSpan{span: span}
}

// OtelSpan wraps an OpenTelemetry span.
type OtelSpan struct {
	span trace.Span
}

// SetAttributes sets OpenTelemetry attributes on the span.
func (s *OtelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// RecordError records an error on the OpenTelemetry span.
func (s *OtelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

// SetStatus sets the status of the OpenTelemetry span.
func (s *OtelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// End completes the OpenTelemetry span.
func (s *OtelSpan) End() {
	s.span.End()
}

// QueryMetadata describes one governed query for span attribution. SQL is
// expected to be sanitized/compacted by the caller before it lands here.
type QueryMetadata struct {
	// SQL is the executed statement text (after any limit rewrite).
	SQL string
	// Operation is the statement kind: SELECT, INSERT, UPDATE, DELETE, DDL, OTHER.
	Operation string
	// Database is the engine name (postgres, mysql, sqlite, other).
	Database string
	// Duration is how long the query took to execute.
	Duration time.Duration
	// RowsAffected is the engine-reported count for write statements.
	RowsAffected int64
	// LimitApplied and AppliedLimit report an injected LIMIT clause.
	// LimitApplied distinguishes "no rewrite" from an injected LIMIT 0.
	LimitApplied bool
	AppliedLimit uint64
	// HasEstimate and EstimatedRows carry the planner's pre-execution row
	// estimate when one was requested.
	HasEstimate   bool
	EstimatedRows uint64
	// Error is any error that occurred during query execution.
	Error error
}

// AddQueryAttributes adds database semantic convention attributes to a span.
// See: https://opentelemetry.io/docs/specs/semconv/database/
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}

	if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	if meta.LimitApplied {
		attrs = append(attrs, attribute.Int64("db.limit.applied", int64(meta.AppliedLimit)))
	}
	if meta.HasEstimate {
		attrs = append(attrs, attribute.Int64("db.estimate.rows", int64(meta.EstimatedRows)))
	}

	span.SetAttributes(attrs...)

	if meta.Error != nil {
		span.RecordError(meta.Error)
		span.SetStatus(codes.Error, meta.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
