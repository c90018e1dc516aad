// Package tracking records OpenTelemetry spans and metrics for outbound API calls.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/iris-marketplace/iris-client/apiclient"

	// Metric names following OpenTelemetry HTTP client semantic conventions
	MetricRequestDuration = "http.client.request.duration" // Histogram in seconds
	MetricRetries         = "iris.client.retries"          // Counter
	MetricErrors          = "iris.client.errors"           // Counter

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrRoute      = "url.template"
	attrAttempt    = "http.request.resend_count"
	attrErrorType  = "error.type"
)

// Recorder creates spans and records metrics for client attempts.
// The zero value is not usable; construct with New.
type Recorder struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	retries  metric.Int64Counter
	errors   metric.Int64Counter
}

// New creates a Recorder from the given providers. Nil providers fall back to
// the global ones registered with otel.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Recorder {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	r := &Recorder{tracer: tp.Tracer(instrumentationName)}

	var err error
	r.duration, err = meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of outbound API request attempts"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricRequestDuration, err)

	r.retries, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of retried API request attempts"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	r.errors, err = meter.Int64Counter(
		MetricErrors,
		metric.WithDescription("Number of API calls that ended in an error"),
		metric.WithUnit("{error}"),
	)
	logMetricError(MetricErrors, err)

	return r
}

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize client metric %s: %v\n", name, err)
	}
}

// Attempt is an in-flight request attempt.
type Attempt struct {
	recorder *Recorder
	span     trace.Span
	start    time.Time
	attrs    []attribute.KeyValue
}

// StartAttempt starts a client span for one attempt of method against path.
// attempt is 1-based.
func (r *Recorder) StartAttempt(ctx context.Context, method, path string, attempt int) (context.Context, *Attempt) {
	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, path),
	}
	ctx, span := r.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(attribute.Int(attrAttempt, attempt-1)),
	)
	return ctx, &Attempt{recorder: r, span: span, start: time.Now(), attrs: attrs}
}

// End finishes the attempt. status is the HTTP status (0 when none was
// received) and errType is a machine-readable failure code, empty on success.
func (a *Attempt) End(ctx context.Context, status int, errType string) {
	attrs := a.attrs
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
		a.span.SetAttributes(attribute.Int(attrStatusCode, status))
	}
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
		a.span.SetAttributes(attribute.String(attrErrorType, errType))
		a.span.SetStatus(codes.Error, errType)
	}

	if a.recorder.duration != nil {
		a.recorder.duration.Record(ctx, time.Since(a.start).Seconds(), metric.WithAttributes(attrs...))
	}
	a.span.End()
}

// RecordRetry counts a retry of method caused by reason (a status code or error code).
func (r *Recorder) RecordRetry(ctx context.Context, method, reason string) {
	if r.retries == nil {
		return
	}
	r.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrErrorType, reason),
	))
}

// RecordError counts a terminal failure of a call.
func (r *Recorder) RecordError(ctx context.Context, method string, status int, code string) {
	if r.errors == nil {
		return
	}
	if code == "" {
		code = strconv.Itoa(status)
	}
	r.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.Int(attrStatusCode, status),
		attribute.String(attrErrorType, code),
	))
}
