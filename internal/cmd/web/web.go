// Package web parses web command flags and launches the web server.
package web

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	entrypoint "github.com/failuretoload/datamonster-web/internal/platform/cmd"
	"github.com/failuretoload/datamonster-web/internal/platform/timeouts"
	"github.com/failuretoload/datamonster-web/internal/services/web"
	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/auth/google"
	"github.com/failuretoload/datamonster-web/internal/services/web/auth/provider"
	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/observability"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
	redisstore "github.com/failuretoload/datamonster-web/internal/services/web/session/redis"
	sqlitestore "github.com/failuretoload/datamonster-web/internal/services/web/session/sqlite"
)

const (
	StrategyGoogle   = "google"
	StrategyProvider = "provider"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	BackendREST    = "rest"
	BackendGraphQL = "graphql"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr            string        `env:"DATAMONSTER_WEB_HTTP_ADDR" envDefault:"localhost:8080"`
	TrustForwardedProto bool          `env:"DATAMONSTER_WEB_TRUST_FORWARDED_PROTO"`
	AuthWait            time.Duration `env:"DATAMONSTER_WEB_AUTH_WAIT" envDefault:"3s"`

	AuthStrategy   string `env:"DATAMONSTER_WEB_AUTH_STRATEGY" envDefault:"google"`
	GoogleClientID string `env:"DATAMONSTER_WEB_GOOGLE_CLIENT_ID"`
	GoogleLoginURI string `env:"DATAMONSTER_WEB_GOOGLE_LOGIN_URI"`

	ProviderClientID      string   `env:"DATAMONSTER_WEB_PROVIDER_CLIENT_ID"`
	ProviderClientSecret  string   `env:"DATAMONSTER_WEB_PROVIDER_CLIENT_SECRET"`
	ProviderAuthURL       string   `env:"DATAMONSTER_WEB_PROVIDER_AUTH_URL"`
	ProviderTokenURL      string   `env:"DATAMONSTER_WEB_PROVIDER_TOKEN_URL"`
	ProviderRedirectURL   string   `env:"DATAMONSTER_WEB_PROVIDER_REDIRECT_URL"`
	ProviderScopes        []string `env:"DATAMONSTER_WEB_PROVIDER_SCOPES" envDefault:"openid,email,profile" envSeparator:","`
	ProviderPublicKeyPEM  string   `env:"DATAMONSTER_WEB_PROVIDER_PUBLIC_KEY"`
	ProviderIssuer        string   `env:"DATAMONSTER_WEB_PROVIDER_ISSUER"`
	ProviderRevocationURL string   `env:"DATAMONSTER_WEB_PROVIDER_REVOCATION_URL"`

	SessionStore string        `env:"DATAMONSTER_WEB_SESSION_STORE" envDefault:"memory"`
	SessionTTL   time.Duration `env:"DATAMONSTER_WEB_SESSION_TTL" envDefault:"720h"`
	SessionSweep time.Duration `env:"DATAMONSTER_WEB_SESSION_SWEEP" envDefault:"1h"`
	SQLitePath   string        `env:"DATAMONSTER_WEB_SQLITE_PATH" envDefault:"data/web-sessions.db"`
	RedisURL     string        `env:"DATAMONSTER_WEB_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	APIBaseURL     string        `env:"DATAMONSTER_WEB_API_BASE_URL" envDefault:"http://localhost:8081"`
	BackendStyle   string        `env:"DATAMONSTER_WEB_BACKEND_STYLE" envDefault:"rest"`
	GraphQLURL     string        `env:"DATAMONSTER_WEB_GRAPHQL_URL"`
	BackendTimeout time.Duration `env:"DATAMONSTER_WEB_BACKEND_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto from the proxy")
	fs.DurationVar(&cfg.AuthWait, "auth-wait", cfg.AuthWait, "How long pages wait for session validation")
	fs.StringVar(&cfg.AuthStrategy, "auth-strategy", cfg.AuthStrategy, "Sign-in strategy: google or provider")
	fs.StringVar(&cfg.GoogleClientID, "google-client-id", cfg.GoogleClientID, "Google OAuth client id")
	fs.StringVar(&cfg.SessionStore, "session-store", cfg.SessionStore, "Session store: memory, sqlite or redis")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite session database path")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis session store URL")
	fs.StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL, "Campaign backend base URL")
	fs.StringVar(&cfg.BackendStyle, "backend-style", cfg.BackendStyle, "Campaign backend API: rest or graphql")
	fs.StringVar(&cfg.GraphQLURL, "graphql-url", cfg.GraphQLURL, "GraphQL endpoint, defaults to the base URL plus /graphql")
	fs.DurationVar(&cfg.BackendTimeout, "backend-timeout", cfg.BackendTimeout, "Backend request timeout")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.AuthStrategy = strings.ToLower(strings.TrimSpace(cfg.AuthStrategy))
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	cfg.BackendStyle = strings.ToLower(strings.TrimSpace(cfg.BackendStyle))
	return cfg, nil
}

// Run starts the web server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		server, closeStore, err := newServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve web: %w", err)
		}
		return nil
	})
}

func newServer(ctx context.Context, cfg Config) (*web.Server, func(), error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go session.Sweep(sweepCtx, store, cfg.SessionSweep)
	closeStore := func() {
		stopSweep()
		if err := store.Close(); err != nil {
			log.Printf("web: close session store: %v", err)
		}
	}
	client := httpClient(cfg.BackendTimeout)
	strategy, err := newStrategy(cfg, client)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("init auth strategy: %w", err)
	}
	gateway, err := newGateway(cfg, client)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("init backend gateway: %w", err)
	}
	server, err := web.NewServer(ctx, web.Config{
		HTTPAddr:     cfg.HTTPAddr,
		Strategy:     strategy,
		Store:        store,
		Gateway:      gateway,
		SchemePolicy: requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
		AuthWait:     cfg.AuthWait,
		ServiceName:  entrypoint.ServiceWeb,
	})
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("init web server: %w", err)
	}
	log.Printf("web: auth=%s store=%s backend=%s", strategy.Name(), cfg.SessionStore, cfg.BackendStyle)
	return server, closeStore, nil
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = timeouts.BackendRequest
	}
	return &http.Client{Timeout: timeout, Transport: observability.Transport(nil)}
}

func openStore(ctx context.Context, cfg Config) (session.Store, error) {
	switch cfg.SessionStore {
	case "", StoreMemory:
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case StoreSQLite:
		return sqlitestore.Open(ctx, cfg.SQLitePath, cfg.SessionTTL)
	case StoreRedis:
		return redisstore.Connect(ctx, cfg.RedisURL, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func newStrategy(cfg Config, client *http.Client) (auth.Strategy, error) {
	switch cfg.AuthStrategy {
	case "", StrategyGoogle:
		return google.New(google.Config{
			ClientID:   cfg.GoogleClientID,
			APIBaseURL: cfg.APIBaseURL,
			LoginURI:   cfg.GoogleLoginURI,
			HTTPClient: client,
		})
	case StrategyProvider:
		return provider.New(provider.Config{
			ClientID:      cfg.ProviderClientID,
			ClientSecret:  cfg.ProviderClientSecret,
			AuthURL:       cfg.ProviderAuthURL,
			TokenURL:      cfg.ProviderTokenURL,
			RedirectURL:   cfg.ProviderRedirectURL,
			Scopes:        cfg.ProviderScopes,
			PublicKeyPEM:  cfg.ProviderPublicKeyPEM,
			Issuer:        cfg.ProviderIssuer,
			RevocationURL: cfg.ProviderRevocationURL,
			HTTPClient:    client,
		})
	default:
		return nil, fmt.Errorf("unknown auth strategy %q", cfg.AuthStrategy)
	}
}

func newGateway(cfg Config, client *http.Client) (backend.Gateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	switch cfg.BackendStyle {
	case "", BackendREST:
		if baseURL == "" {
			return backend.UnavailableGateway{}, nil
		}
		return backend.NewRESTGateway(baseURL, client), nil
	case BackendGraphQL:
		endpoint := strings.TrimSpace(cfg.GraphQLURL)
		if endpoint == "" && baseURL != "" {
			endpoint = baseURL + "/graphql"
		}
		if endpoint == "" {
			return backend.UnavailableGateway{}, nil
		}
		return backend.NewGraphQLGateway(endpoint, client), nil
	default:
		return nil, fmt.Errorf("unknown backend style %q", cfg.BackendStyle)
	}
}
