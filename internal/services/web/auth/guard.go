package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
)

// GuardConfig configures Guard.
type GuardConfig struct {
	// Resolve returns the request's auth context.
	Resolve func(*http.Request) *Context
	// SignInPath receives unauthenticated visitors.
	SignInPath string
	// Wait bounds how long the guard waits for resolution.
	Wait time.Duration
	// Placeholder renders while the session is still resolving.
	Placeholder http.Handler
}

// Guard gates next on the request's auth context. Authenticated requests
// pass through; unauthenticated ones are redirected to the sign-in path with
// the requested path in next. A request still resolving after the wait gets
// the placeholder and no redirect.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	placeholder := cfg.Placeholder
	if placeholder == nil {
		placeholder = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusAccepted)
		})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var authCtx *Context
			if cfg.Resolve != nil {
				authCtx = cfg.Resolve(r)
			}
			switch authCtx.Await(r.Context(), cfg.Wait) {
			case StateAuthenticated:
				next.ServeHTTP(w, r)
			case StateInitializing:
				w.Header().Set("Cache-Control", "no-store")
				placeholder.ServeHTTP(w, r)
			default:
				httpx.WriteRedirect(w, r, SignInURL(cfg.SignInPath, r))
			}
		})
	}
}

// SignInURL returns signInPath with the request path (and query) as next.
func SignInURL(signInPath string, r *http.Request) string {
	if r == nil || r.URL == nil {
		return signInPath
	}
	target := r.URL.Path
	if r.Method != http.MethodGet {
		// A replayed form post makes no sense after signing in.
		target = ""
	} else if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	if target == "" {
		return signInPath
	}
	return signInPath + "?" + url.Values{"next": {target}}.Encode()
}
