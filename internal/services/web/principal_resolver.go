package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/sessioncookie"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

// requestPrincipalState holds the auth context of one request. It is
// created lazily and released when the request ends.
type requestPrincipalState struct {
	mu      sync.Mutex
	authCtx *auth.Context
	cells   []*session.Cell

	viewerOnce sync.Once
	viewer     module.Viewer
}

func (s *requestPrincipalState) release() {
	s.mu.Lock()
	cells := s.cells
	s.cells = nil
	s.mu.Unlock()
	for _, cell := range cells {
		cell.Release()
	}
}

type requestPrincipalStateKey struct{}

type principalResolver struct {
	manager  *session.Manager
	strategy auth.Strategy
	policy   requestmeta.SchemePolicy
	wait     time.Duration
}

func newPrincipalResolver(manager *session.Manager, strategy auth.Strategy, policy requestmeta.SchemePolicy, wait time.Duration) principalResolver {
	return principalResolver{manager: manager, strategy: strategy, policy: policy, wait: wait}
}

// contextFor binds a new auth context to sessionID and starts resolving it.
func (p principalResolver) contextFor(ctx context.Context, state *requestPrincipalState, sessionID string) *auth.Context {
	cell := p.manager.Acquire(sessionID)
	state.cells = append(state.cells, cell)
	authCtx := auth.NewContext(p.strategy, cell)
	authCtx.Start(ctx)
	state.authCtx = authCtx
	return authCtx
}

// resolveAuth returns the request's auth context. Requests outside the
// principal middleware get a signed-out context.
func (p principalResolver) resolveAuth(r *http.Request) *auth.Context {
	state := requestPrincipalStateFromRequest(r)
	if state == nil {
		return auth.NewContext(p.strategy, nil)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.authCtx != nil {
		return state.authCtx
	}
	sessionID, _ := sessioncookie.Read(r)
	return p.contextFor(r.Context(), state, sessionID)
}

// beginSession returns an auth context bound to a browser session, setting
// a fresh session cookie when the request carries none.
func (p principalResolver) beginSession(w http.ResponseWriter, r *http.Request) *auth.Context {
	state := requestPrincipalStateFromRequest(r)
	if state == nil {
		return auth.NewContext(p.strategy, nil)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if sessionID, ok := sessioncookie.Read(r); ok {
		if state.authCtx != nil {
			return state.authCtx
		}
		return p.contextFor(r.Context(), state, sessionID)
	}
	if state.authCtx != nil && state.authCtx.SessionID() != "" {
		return state.authCtx
	}
	sessionID := uuid.NewString()
	sessioncookie.Write(w, r, sessionID, p.policy)
	return p.contextFor(r.Context(), state, sessionID)
}

func (p principalResolver) endSession(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r, p.policy)
}

func (p principalResolver) resolveViewerUncached(r *http.Request) module.Viewer {
	authCtx := p.resolveAuth(r)
	if authCtx.Await(r.Context(), p.wait) != auth.StateAuthenticated {
		return module.Viewer{}
	}
	user, ok := authCtx.User()
	if !ok {
		return module.Viewer{}
	}
	return module.Viewer{SignedIn: true, DisplayName: user.DisplayName(), Email: user.Email, AvatarURL: user.Picture}
}

func (p principalResolver) resolveViewer(r *http.Request) module.Viewer {
	if state := requestPrincipalStateFromRequest(r); state != nil {
		state.viewerOnce.Do(func() {
			state.viewer = p.resolveViewerUncached(r)
		})
		return state.viewer
	}
	return p.resolveViewerUncached(r)
}

func withRequestPrincipalState() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r == nil {
				next.ServeHTTP(w, r)
				return
			}
			state := &requestPrincipalState{}
			defer state.release()
			ctx := context.WithValue(r.Context(), requestPrincipalStateKey{}, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestPrincipalStateFromRequest(r *http.Request) *requestPrincipalState {
	if r == nil {
		return nil
	}
	return requestPrincipalStateFromContext(r.Context())
}

func requestPrincipalStateFromContext(ctx context.Context) *requestPrincipalState {
	if ctx == nil {
		return nil
	}
	state, _ := ctx.Value(requestPrincipalStateKey{}).(*requestPrincipalState)
	return state
}
