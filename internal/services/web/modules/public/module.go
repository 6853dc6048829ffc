// Package public serves the routes reachable without signing in: landing,
// sign-in, the sign-in callbacks, sign-out and the health check.
package public

import (
	"net/http"
	"time"

	"github.com/failuretoload/datamonster-web/internal/platform/timeouts"
	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
)

// Config tunes the public module.
type Config struct {
	// AuthWait bounds how long sign-in pages wait for session resolution.
	AuthWait time.Duration
}

// Module provides public routes.
type Module struct {
	cfg Config
}

// New returns a public module with defaults applied.
func New(cfg Config) Module {
	if cfg.AuthWait <= 0 {
		cfg.AuthWait = timeouts.AuthWait
	}
	return Module{cfg: cfg}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "public" }

// Mount wires public route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := newHandlers(deps, m.cfg)
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.Root+"{$}", h.handleHome)
	mux.HandleFunc(http.MethodGet+" "+routepath.SignIn, h.handleSignIn)
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthGoogle, h.handleGoogleCredential)
	mux.HandleFunc(routepath.AuthGoogle, httpx.MethodNotAllowed(http.MethodPost))
	mux.HandleFunc(http.MethodGet+" "+routepath.AuthLogin, h.handleProviderLogin)
	mux.HandleFunc(http.MethodGet+" "+routepath.AuthCallback, h.handleProviderCallback)
	mux.HandleFunc(http.MethodPost+" "+routepath.SignOut, h.handleSignOut)
	mux.HandleFunc(routepath.SignOut, httpx.MethodNotAllowed(http.MethodPost))
	mux.HandleFunc(http.MethodGet+" "+routepath.Health, h.handleHealth)
	mux.Handle(routepath.Root, h.notFound())
	return module.Mount{Prefix: routepath.Root, Handler: mux}, nil
}
