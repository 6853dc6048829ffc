package session

import (
	"context"
	"log"
	"time"
)

// Pruner is a store that can drop expired records in bulk.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Sweep prunes store every interval until ctx is done. Stores that expire
// records themselves, such as Redis, do not implement Pruner and return at
// once.
func Sweep(ctx context.Context, store Store, interval time.Duration) {
	pruner, ok := store.(Pruner)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pruner.Prune(ctx)
			if err != nil {
				log.Printf("session: prune expired sessions: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("session: pruned %d expired sessions", removed)
			}
		}
	}
}
