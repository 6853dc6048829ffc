// Package web hosts the browser-facing campaign tracker.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/failuretoload/datamonster-web/internal/platform/timeouts"
	"github.com/failuretoload/datamonster-web/internal/services/web/app"
	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/modules"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/observability"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/pagerender"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/weberror"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
	webstatic "github.com/failuretoload/datamonster-web/internal/services/web/static"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

const defaultServiceName = "datamonster-web"

// Config defines startup inputs for the web service.
type Config struct {
	HTTPAddr string
	// Strategy signs users in. Without one every visitor stays signed out.
	Strategy auth.Strategy
	// Store keeps session tokens keyed by browser session.
	Store session.Store
	// Gateway reaches the campaign backend. Without one every call reports
	// the backend as unavailable.
	Gateway      backend.Gateway
	SchemePolicy requestmeta.SchemePolicy
	// AuthWait bounds how long pages wait for session validation.
	AuthWait    time.Duration
	ServiceName string
}

// Server hosts the web HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewHandler builds the root handler from the default module groups.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.AuthWait <= 0 {
		cfg.AuthWait = timeouts.AuthWait
	}
	if cfg.Gateway == nil {
		cfg.Gateway = backend.UnavailableGateway{}
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	principal := newPrincipalResolver(session.NewManager(cfg.Store), cfg.Strategy, cfg.SchemePolicy, cfg.AuthWait)
	deps := module.Dependencies{
		Gateway:       cfg.Gateway,
		ResolveViewer: principal.resolveViewer,
		ResolveAuth:   principal.resolveAuth,
		BeginSession:  principal.beginSession,
		EndSession:    principal.endSession,
		SchemePolicy:  cfg.SchemePolicy,
	}
	guard := auth.Guard(auth.GuardConfig{
		Resolve:     principal.resolveAuth,
		SignInPath:  routepath.SignIn,
		Wait:        cfg.AuthWait,
		Placeholder: pendingPage(deps),
	})
	h, err := app.Composer{}.Compose(app.ComposeInput{
		Dependencies:     deps,
		Guard:            guard,
		PublicModules:    modules.DefaultPublicModules(cfg.AuthWait),
		ProtectedModules: modules.DefaultProtectedModules(),
	})
	if err != nil {
		return nil, err
	}

	rootMux := http.NewServeMux()
	rootMux.Handle(routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServer(http.FS(webstatic.FS))))
	rootMux.Handle(routepath.Root, httpx.Chain(h, httpx.NoStore()))
	return httpx.Chain(rootMux,
		httpx.RecoverPanic(weberror.InternalError(deps)),
		httpx.RequestID(),
		withRequestPrincipalState(),
		observability.RequestLogger(log.Default()),
		observability.Tracing(serviceName),
	), nil
}

// pendingPage is shown while a protected request's session is still being
// validated. It retries the same URL and never navigates elsewhere.
func pendingPage(deps module.Dependencies) http.Handler {
	// The viewer would wait on the same unresolved session.
	deps.ResolveViewer = nil
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc, _ := webi18n.ResolveLocalizer(nil, r)
		view := templates.PendingView{RetrySeconds: 1, RetryURL: r.URL.RequestURI()}
		err := pagerender.WriteModulePage(w, r, deps, pagerender.ModulePage{
			Title:    templates.T(loc, "web.auth.pending"),
			Fragment: templates.Fragment("pending", view),
		})
		if err != nil {
			log.Printf("web: render pending page: %v", err)
		}
	})
}

// NewServer validates config and constructs a web server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose web handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("web listening on %s", s.httpAddr)
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown web http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve web http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
