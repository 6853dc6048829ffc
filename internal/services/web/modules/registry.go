// Package modules lists the feature modules the web service mounts.
package modules

import (
	"time"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/modules/public"
	"github.com/failuretoload/datamonster-web/internal/services/web/modules/settlements"
)

// DefaultPublicModules returns the modules reachable without signing in.
func DefaultPublicModules(authWait time.Duration) []module.Module {
	return []module.Module{
		public.New(public.Config{AuthWait: authWait}),
	}
}

// DefaultProtectedModules returns the modules behind the route guard.
func DefaultProtectedModules() []module.Module {
	return []module.Module{
		settlements.New(),
	}
}
