package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the resolved configuration of the Iris client and CLI.
type Config struct {
	API           APIConfig           `koanf:"api" json:"api" yaml:"api"`
	Auth          AuthConfig          `koanf:"auth" json:"auth" yaml:"auth"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Trace         TraceConfig         `koanf:"trace" json:"trace" yaml:"trace"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the underlying Koanf instance for keys not modelled above
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"required,url"`
	Prefix  string        `koanf:"prefix" json:"prefix" yaml:"prefix"`
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Retry   RetryConfig   `koanf:"retry" json:"retry" yaml:"retry"`
}

// RetryConfig controls the attempt budget and the linear backoff unit.
type RetryConfig struct {
	Attempts int           `koanf:"attempts" json:"attempts" yaml:"attempts" validate:"min=1,max=10"`
	Delay    time.Duration `koanf:"delay" json:"delay" yaml:"delay" validate:"gte=0"`
}

// AuthConfig says where bearer tokens come from. Precedence: Token, then
// OAuth client credentials, then the token file.
type AuthConfig struct {
	TokenFile string      `koanf:"tokenfile" json:"tokenfile" yaml:"tokenfile" validate:"required"`
	Token     string      `koanf:"token" json:"-" yaml:"-"`
	OAuth     OAuthConfig `koanf:"oauth" json:"oauth" yaml:"oauth"`
}

// OAuthConfig enables the client credentials grant when TokenURL is set.
type OAuthConfig struct {
	TokenURL     string `koanf:"tokenurl" json:"tokenurl" yaml:"tokenurl" validate:"omitempty,url"`
	ClientID     string `koanf:"clientid" json:"clientid" yaml:"clientid" validate:"required_with=TokenURL"`
	ClientSecret string `koanf:"clientsecret" json:"-" yaml:"-"`
	Scopes       string `koanf:"scopes" json:"scopes" yaml:"scopes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level    string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty   bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
	Payloads bool   `koanf:"payloads" json:"payloads" yaml:"payloads"`
}

// TraceConfig controls correlation headers.
type TraceConfig struct {
	W3C bool `koanf:"w3c" json:"w3c" yaml:"w3c"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	Enabled  bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"oneof=stdout http grpc"`
	Insecure bool   `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Service  string `koanf:"service" json:"service" yaml:"service" validate:"required_if=Enabled true"`
}
