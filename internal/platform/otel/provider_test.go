package otel_test

import (
	"context"
	"testing"

	"github.com/failuretoload/datamonster-web/internal/platform/otel"
)

func TestSetupNoop(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "empty endpoint", endpoint: "", enabled: ""},
		{name: "blank endpoint", endpoint: "   ", enabled: ""},
		{name: "explicitly disabled", endpoint: "http://localhost:4318", enabled: "FALSE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(otel.EnvEndpoint, tc.endpoint)
			t.Setenv(otel.EnvEnabled, tc.enabled)

			shutdown, err := otel.Setup(context.Background(), "test-service")
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := shutdown(ctx); err != nil {
				t.Fatalf("noop shutdown error = %v", err)
			}
		})
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	t.Setenv(otel.EnvEndpoint, "http://192.0.2.1:4318")
	t.Setenv(otel.EnvEnabled, "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
}
