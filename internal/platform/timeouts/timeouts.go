// Package timeouts defines the durations shared across the web service and
// its entrypoint.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// BackendRequest caps a single call from the frontend to the campaign
// backend or the identity provider.
const BackendRequest = 10 * time.Second

// AuthWait is how long a protected page waits for the session to resolve
// before it renders the loading placeholder.
const AuthWait = 3 * time.Second

// PendingFlow is how long an identity-provider sign-in may stay open.
const PendingFlow = 10 * time.Minute
