package recorder

import (
	"context"
	"log/slog"
	"time"
)

// EvictCallback is called for every abandoned conversation the sweeper drops.
type EvictCallback func(conversationID string)

// Sweep drops in-flight conversations that have not been touched for ttl
// and returns their ids. Nothing is persisted for them.
func (r *Recorder) Sweep(ttl time.Duration) []string {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, ac := range r.active {
		if ac.touched.Before(cutoff) {
			delete(r.active, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// StartSweeper runs a background goroutine that periodically drops
// abandoned conversations until ctx is done.
func (r *Recorder) StartSweeper(ctx context.Context, interval, ttl time.Duration, onEvict EvictCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Conversation sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				evicted := r.Sweep(ttl)
				if len(evicted) == 0 {
					continue
				}
				slog.Info("Conversation sweeper dropped abandoned conversations", "count", len(evicted))
				for _, id := range evicted {
					r.diag.Printf("swept abandoned conversation %s", id)
					if onEvict != nil {
						onEvict(id)
					}
				}
			case <-ctx.Done():
				slog.Info("Conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
