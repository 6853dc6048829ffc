// Package app composes feature modules into the root HTTP handler.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/sessioncookie"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
)

// ComposeInput carries module groups and shared composition contracts.
type ComposeInput struct {
	Dependencies module.Dependencies
	// Guard wraps every protected module. Without one protected modules are
	// refused.
	Guard            func(http.Handler) http.Handler
	PublicModules    []module.Module
	ProtectedModules []module.Module
}

// Composer wires root mux mounts and route-group auth behavior.
type Composer struct{}

// Compose builds a root HTTP handler from module groups.
func (Composer) Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)

	for _, feature := range input.PublicModules {
		if feature == nil {
			return nil, fmt.Errorf("public module is nil")
		}
		if err := mountPublicModule(root, feature, input.Dependencies, seen); err != nil {
			return nil, err
		}
	}

	if len(input.ProtectedModules) > 0 && input.Guard == nil {
		return nil, fmt.Errorf("protected modules require a guard")
	}
	wrap := wrapProtectedModule(input.Guard, input.Dependencies.SchemePolicy)
	for _, feature := range input.ProtectedModules {
		if feature == nil {
			return nil, fmt.Errorf("protected module is nil")
		}
		if err := mountProtectedModule(root, feature, input.Dependencies, seen, wrap); err != nil {
			return nil, err
		}
	}

	return root, nil
}

func mountModule(
	root *http.ServeMux,
	feature module.Module,
	mount module.Mount,
	prefix string,
	seen map[string]string,
	wrap func(http.Handler) http.Handler,
) error {
	if previous, ok := seen[prefix]; ok {
		return fmt.Errorf("module %q duplicates prefix %q owned by module %q", feature.ID(), prefix, previous)
	}
	seen[prefix] = feature.ID()

	handler := mount.Handler
	if wrap != nil {
		handler = wrap(handler)
	}
	root.Handle(prefix, handler)
	return nil
}

func mountPublicModule(root *http.ServeMux, feature module.Module, deps module.Dependencies, seen map[string]string) error {
	mount, prefix, err := resolveMount(feature, deps)
	if err != nil {
		return err
	}
	if isProtectedPrefix(prefix) {
		return fmt.Errorf("module %q has protected prefix %q in public group", feature.ID(), prefix)
	}
	return mountModule(root, feature, mount, prefix, seen, nil)
}

func mountProtectedModule(root *http.ServeMux, feature module.Module, deps module.Dependencies, seen map[string]string, wrap func(http.Handler) http.Handler) error {
	mount, prefix, err := resolveMount(feature, deps)
	if err != nil {
		return err
	}
	if !isProtectedPrefix(prefix) {
		return fmt.Errorf("module %q must mount under %s, got %q", feature.ID(), routepath.AppPrefix, prefix)
	}
	return mountModule(root, feature, mount, prefix, seen, wrap)
}

func isProtectedPrefix(prefix string) bool {
	return strings.HasPrefix(prefix, routepath.AppPrefix)
}

func resolveMount(feature module.Module, deps module.Dependencies) (module.Mount, string, error) {
	mount, err := feature.Mount(deps)
	if err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	prefix := normalizePrefix(mount.Prefix)
	if prefix == "" {
		return module.Mount{}, "", fmt.Errorf("mount module %q: prefix is required", feature.ID())
	}
	if mount.Handler == nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	return mount, prefix, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// wrapProtectedModule runs the same-origin check before the guard so a
// forged post is refused without touching the session.
func wrapProtectedModule(guard func(http.Handler) http.Handler, policy requestmeta.SchemePolicy) func(http.Handler) http.Handler {
	csrfWrap := requireCookieSessionSameOrigin(policy)
	return func(next http.Handler) http.Handler {
		return csrfWrap(guard(next))
	}
}

func requireCookieSessionSameOrigin(policy requestmeta.SchemePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutationMethod(r) || !hasSessionCookie(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !requestmeta.HasSameOriginProof(r, policy) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutationMethod(r *http.Request) bool {
	if r == nil {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hasSessionCookie(r *http.Request) bool {
	_, ok := sessioncookie.Read(r)
	return ok
}
