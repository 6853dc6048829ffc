package modules

import (
	"strings"
	"testing"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
)

func TestDefaultModulesMount(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, group := range [][]module.Module{DefaultPublicModules(0), DefaultProtectedModules()} {
		for _, feature := range group {
			if seen[feature.ID()] {
				t.Fatalf("duplicate module id %q", feature.ID())
			}
			seen[feature.ID()] = true
			mount, err := feature.Mount(module.Dependencies{})
			if err != nil {
				t.Fatalf("mount %s: %v", feature.ID(), err)
			}
			if mount.Handler == nil || mount.Prefix == "" {
				t.Fatalf("mount %s = %+v", feature.ID(), mount)
			}
		}
	}
	for _, feature := range DefaultProtectedModules() {
		mount, _ := feature.Mount(module.Dependencies{})
		if !strings.HasPrefix(mount.Prefix, "/app/") {
			t.Fatalf("protected module %s mounted at %q", feature.ID(), mount.Prefix)
		}
	}
}
