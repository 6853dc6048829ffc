// Package module defines the feature contract used by web composition.
package module

import (
	"net/http"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
)

// Viewer is the signed-in user as the app chrome shows it.
type Viewer struct {
	SignedIn    bool
	DisplayName string
	Email       string
	AvatarURL   string
}

// ResolveViewer resolves app chrome viewer state for a request.
type ResolveViewer func(*http.Request) Viewer

// ResolveAuth returns the request's auth context, creating it on first use.
// It never returns nil.
type ResolveAuth func(*http.Request) *auth.Context

// BeginSession returns an auth context bound to a browser session, minting
// the session cookie when the request has none.
type BeginSession func(http.ResponseWriter, *http.Request) *auth.Context

// EndSession clears the browser session cookie.
type EndSession func(http.ResponseWriter, *http.Request)

// Dependencies carries the shared collaborators handed to every module.
type Dependencies struct {
	Gateway       backend.Gateway
	ResolveViewer ResolveViewer
	ResolveAuth   ResolveAuth
	BeginSession  BeginSession
	EndSession    EndSession
	SchemePolicy  requestmeta.SchemePolicy
}

// Viewer resolves the viewer, or the signed-out viewer when no resolver is
// configured.
func (d Dependencies) Viewer(r *http.Request) Viewer {
	if d.ResolveViewer == nil {
		return Viewer{}
	}
	return d.ResolveViewer(r)
}

// Mount describes a module route mount.
type Mount struct {
	Prefix  string
	Handler http.Handler
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount(Dependencies) (Mount, error)
}
