package observability

import (
	"fmt"
	"io"
	"time"
)

// Export protocols.
const (
	ProtocolStdout = "stdout"
	ProtocolHTTP   = "http"
	ProtocolGRPC   = "grpc"
)

const (
	defaultBatchTimeout   = 5 * time.Second
	defaultMetricInterval = 30 * time.Second
)

// Config configures trace and metric export.
type Config struct {
	// Enabled turns export on. When false NewProvider returns no-op providers.
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Protocol selects the exporter family.
	Protocol string

	// Endpoint is "host:port" or a full URL. Empty uses the exporter default.
	Endpoint string

	// Insecure disables TLS for OTLP exporters.
	Insecure bool

	// Headers are sent with every OTLP export, e.g. for collector authentication.
	Headers map[string]string

	BatchTimeout   time.Duration
	MetricInterval time.Duration

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// ApplyDefaults fills zero values with safe defaults.
func (c *Config) ApplyDefaults() {
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = defaultBatchTimeout
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
}

// Validate checks an enabled configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	switch c.Protocol {
	case ProtocolStdout, ProtocolHTTP, ProtocolGRPC:
		return nil
	default:
		return fmt.Errorf("protocol '%s': %w", c.Protocol, ErrInvalidProtocol)
	}
}
