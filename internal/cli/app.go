package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iris-marketplace/iris-client/apiclient"
	"github.com/iris-marketplace/iris-client/auth"
	"github.com/iris-marketplace/iris-client/config"
	"github.com/iris-marketplace/iris-client/endpoints"
	"github.com/iris-marketplace/iris-client/logger"
	"github.com/iris-marketplace/iris-client/observability"
)

// Token sources reported by whoami.
const (
	sourceConfig = "config"
	sourceOAuth  = "oauth"
	sourceFile   = "file"
)

const shutdownTimeout = 5 * time.Second

// app holds the dependencies shared by every command. They are built once,
// after flag parsing, from the resolved configuration.
type app struct {
	version    string
	configPath string
	verbose    bool

	cfg    *config.Config
	log    logger.Logger
	store  *auth.FileStore
	source string
	client apiclient.Client
	routes endpoints.Catalog
	obs    observability.Provider
}

func (a *app) init(cmd *cobra.Command) error {
	if a.client != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.log = logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Pretty, logger.DefaultFilterConfig())

	a.store, err = auth.NewFileStore(cfg.Auth.TokenFile)
	if err != nil {
		return err
	}

	a.obs, err = observability.NewProvider(&observability.Config{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    cfg.Observability.Service,
		ServiceVersion: a.version,
		Protocol:       cfg.Observability.Protocol,
		Endpoint:       cfg.Observability.Endpoint,
		Insecure:       cfg.Observability.Insecure,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	builder := apiclient.NewBuilder(a.log).
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout).
		WithRetries(cfg.API.Retry.Attempts, cfg.API.Retry.Delay).
		WithTokenSource(a.tokenSource(cmd.Context())).
		WithDefaultHeader("User-Agent", "iris-cli/"+a.version).
		WithTracerProvider(a.obs.TracerProvider()).
		WithMeterProvider(a.obs.MeterProvider())
	if cfg.Log.Payloads {
		builder.WithPayloadLogging(0)
	}
	if cfg.Trace.W3C {
		builder.WithW3CTrace()
	}

	a.client = builder.Build()
	a.routes = endpoints.WithPrefix(cfg.API.Prefix)

	a.log.Debug().
		Str("base_url", cfg.API.BaseURL).
		Str("prefix", a.routes.Prefix()).
		Str("token_source", a.source).
		Msg("Client configured")
	return nil
}

// tokenSource picks the configured token, then OAuth client credentials,
// then the token file.
func (a *app) tokenSource(ctx context.Context) auth.TokenSource {
	if ctx == nil {
		ctx = context.Background()
	}

	switch oauth := a.cfg.Auth.OAuth; {
	case a.cfg.Auth.Token != "":
		a.source = sourceConfig
		return auth.StaticToken(a.cfg.Auth.Token)
	case oauth.TokenURL != "":
		a.source = sourceOAuth
		cc := clientcredentials.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			TokenURL:     oauth.TokenURL,
			Scopes: strings.FieldsFunc(oauth.Scopes, func(r rune) bool {
				return r == ',' || r == ' '
			}),
		}
		return auth.NewOAuth2Source(cc.TokenSource(ctx))
	default:
		a.source = sourceFile
		return a.store
	}
}

func (a *app) close() {
	if a.obs == nil {
		return
	}
	if err := observability.Shutdown(a.obs, shutdownTimeout); err != nil {
		a.log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}
