// Package session keeps the backend session token for each browser session
// on the server side.
//
// The browser only carries an opaque browser-session id (see
// platform/sessioncookie). A Store maps that id to the token; a Manager hands
// out reference-counted Cells so the concurrent requests of one browser
// session share a single view of the token.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrStoreNotConfigured is returned by a nil or closed store.
var ErrStoreNotConfigured = errors.New("session store is not configured")

// Record is the persisted state of one browser session.
type Record struct {
	SessionID string
	Token     string
	UpdatedAt time.Time
}

// Store persists records keyed by browser-session id.
type Store interface {
	Get(ctx context.Context, sessionID string) (Record, bool, error)
	Put(ctx context.Context, record Record) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Normalize trims the record and stamps UpdatedAt when unset. It reports
// false when the record has no session id or token.
func Normalize(record Record, now time.Time) (Record, bool) {
	record.SessionID = strings.TrimSpace(record.SessionID)
	record.Token = strings.TrimSpace(record.Token)
	if record.SessionID == "" || record.Token == "" {
		return Record{}, false
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now.UTC()
	}
	return record, true
}
