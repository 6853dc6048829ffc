// Package redis provides a session store shared between replicas through
// Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failuretoload/datamonster-web/internal/services/web/session"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "datamonster:web:session:"

// Store persists records as JSON values with a sliding TTL.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

type storedRecord struct {
	Token     string `json:"token"`
	UpdatedAt int64  `json:"updated_at"`
}

// Connect parses url, pings the server and returns a store over the client.
func Connect(ctx context.Context, url string, ttl time.Duration) (*Store, error) {
	options, err := goredis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, DefaultKeyPrefix, ttl), nil
}

// New wraps an existing client. Zero ttl keeps records until deleted.
func New(client goredis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// Key returns the Redis key for a browser-session id.
func (s *Store) Key(sessionID string) string {
	return s.prefix + strings.TrimSpace(sessionID)
}

// Get loads the record for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (session.Record, bool, error) {
	if s == nil || s.client == nil {
		return session.Record{}, false, session.ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Record{}, false, nil
	}
	raw, err := s.client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return session.Record{}, false, nil
	}
	if err != nil {
		return session.Record{}, false, fmt.Errorf("get session: %w", err)
	}
	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return session.Record{}, false, fmt.Errorf("decode session: %w", err)
	}
	if stored.Token == "" {
		return session.Record{}, false, nil
	}
	return session.Record{
		SessionID: sessionID,
		Token:     stored.Token,
		UpdatedAt: time.UnixMilli(stored.UpdatedAt).UTC(),
	}, true, nil
}

// Put writes record and resets its TTL.
func (s *Store) Put(ctx context.Context, record session.Record) error {
	if s == nil || s.client == nil {
		return session.ErrStoreNotConfigured
	}
	normalized, ok := session.Normalize(record, s.now())
	if !ok {
		return fmt.Errorf("session id and token are required")
	}
	payload, err := json.Marshal(storedRecord{Token: normalized.Token, UpdatedAt: normalized.UpdatedAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(normalized.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete removes the record for sessionID.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.client == nil {
		return session.ErrStoreNotConfigured
	}
	if err := s.client.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
