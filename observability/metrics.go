package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc/credentials/insecure"
)

func (p *provider) initMeterProvider(res *resource.Resource) error {
	exporter, err := p.createMetricExporter()
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(p.config.MetricInterval),
	)

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

// createMetricExporter uses the same protocol and endpoint as traces.
func (p *provider) createMetricExporter() (sdkmetric.Exporter, error) {
	switch p.config.Protocol {
	case ProtocolStdout:
		opts := []stdoutmetric.Option{stdoutmetric.WithPrettyPrint()}
		if p.config.Writer != nil {
			opts = append(opts, stdoutmetric.WithWriter(p.config.Writer))
		}
		return stdoutmetric.New(opts...)
	case ProtocolHTTP:
		return p.createOTLPHTTPMetricExporter()
	case ProtocolGRPC:
		return p.createOTLPGRPCMetricExporter()
	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", p.config.Protocol, ErrInvalidProtocol)
	}
}

func (p *provider) createOTLPHTTPMetricExporter() (sdkmetric.Exporter, error) {
	var opts []otlpmetrichttp.Option
	switch {
	case p.config.Endpoint == "":
	case hasScheme(p.config.Endpoint):
		opts = append(opts, otlpmetrichttp.WithEndpointURL(p.config.Endpoint))
	default:
		opts = append(opts, otlpmetrichttp.WithEndpoint(p.config.Endpoint))
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(p.config.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(p.config.Headers))
	}
	return otlpmetrichttp.New(context.Background(), opts...)
}

func (p *provider) createOTLPGRPCMetricExporter() (sdkmetric.Exporter, error) {
	var opts []otlpmetricgrpc.Option
	switch {
	case p.config.Endpoint == "":
	case hasScheme(p.config.Endpoint):
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(p.config.Endpoint))
	default:
		opts = append(opts, otlpmetricgrpc.WithEndpoint(p.config.Endpoint))
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(p.config.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(p.config.Headers))
	}
	return otlpmetricgrpc.New(context.Background(), opts...)
}
