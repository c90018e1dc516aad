package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

func TestSpanCollector(t *testing.T) {
	tp := NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	for i, method := range []string{"GET", "GET", "POST"} {
		_, span := tracer.Start(context.Background(), "HTTP "+method)
		span.SetAttributes(attribute.Int("http.request.resend_count", i))
		if i == 1 {
			span.SetStatus(codes.Error, "SERVER_ERROR")
		}
		span.End()
	}

	sc := NewSpanCollector(t, tp.Exporter)
	assert.Equal(t, 3, sc.Len())
	sc.WithName("HTTP GET").AssertCount(2)
	sc.WithName("HTTP PUT").AssertCount(0)
	sc.WithAttribute("http.request.resend_count", 2).AssertCount(1)

	failed := sc.WithStatus(codes.Error).AssertCount(1).First()
	AssertSpanError(t, &failed, "SERVER_ERROR")
	AssertSpanAttribute(t, &failed, "http.request.resend_count", 1)
}

func TestAssertMetricValue(t *testing.T) {
	mp := NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	meter := mp.Meter("test")
	counter, err := meter.Int64Counter("iris.client.retries")
	require.NoError(t, err)
	hist, err := meter.Float64Histogram("http.client.request.duration")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", "503")))
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("error.type", "NETWORK_ERROR")))
	hist.Record(ctx, 0.2)
	hist.Record(ctx, 0.4)

	rm := mp.Collect(t)
	AssertMetricValue(t, rm, "iris.client.retries", 3)
	AssertMetricValue(t, rm, "http.client.request.duration", 2)
	AssertMetricAttribute(t, rm, "iris.client.retries", "error.type", "NETWORK_ERROR")
	assert.Nil(t, FindMetric(rm, "missing"))
}
