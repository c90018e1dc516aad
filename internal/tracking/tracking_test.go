package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestRecorder(t *testing.T) (*Recorder, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return New(tp, mp), exporter, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Metrics{}
}

func TestAttemptSuccess(t *testing.T) {
	rec, exporter, reader := newTestRecorder(t)

	ctx, attempt := rec.StartAttempt(context.Background(), "GET", "/products", 1)
	attempt.End(ctx, 200, "")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.Int(attrStatusCode, 200))
	assert.Contains(t, spans[0].Attributes, attribute.Int(attrAttempt, 0))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	m := findMetric(t, reader, MetricRequestDuration)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 1, hist.DataPoints[0].Count)
}

func TestAttemptFailureMarksSpan(t *testing.T) {
	rec, exporter, _ := newTestRecorder(t)

	ctx, attempt := rec.StartAttempt(context.Background(), "POST", "/orders", 3)
	attempt.End(ctx, 0, "NETWORK_ERROR")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String(attrErrorType, "NETWORK_ERROR"))
	assert.Contains(t, spans[0].Attributes, attribute.Int(attrAttempt, 2))
}

func TestRetryAndErrorCounters(t *testing.T) {
	rec, _, reader := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordRetry(ctx, "GET", "503")
	rec.RecordRetry(ctx, "GET", "503")
	rec.RecordError(ctx, "GET", 503, "")

	retries, ok := findMetric(t, reader, MetricRetries).Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, retries.DataPoints, 1)
	assert.EqualValues(t, 2, retries.DataPoints[0].Value)

	errs, ok := findMetric(t, reader, MetricErrors).Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	code, found := errs.DataPoints[0].Attributes.Value(attrErrorType)
	require.True(t, found)
	assert.Equal(t, "503", code.AsString())
}

func TestNewFallsBackToGlobalProviders(t *testing.T) {
	rec := New(nil, nil)
	ctx, attempt := rec.StartAttempt(context.Background(), "DELETE", "/cart/clear", 1)
	assert.NotPanics(t, func() { attempt.End(ctx, 204, "") })
}
