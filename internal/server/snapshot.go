package server

import (
	"context"
	"sync"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/Shyamsaitejamandibi/votii/internal/metrics"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// snapshotCache fronts the word store with a short-lived per-topic cache.
// Concurrent view starts on a hot topic collapse into a single Redis read.
type snapshotCache struct {
	store domain.SnapshotProvider
	clock clockwork.Clock
	ttl   time.Duration
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]snapshotEntry
}

type snapshotEntry struct {
	words     []domain.WordCount
	expiresAt time.Time
}

func newSnapshotCache(store domain.SnapshotProvider, clock clockwork.Clock, ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		store:   store,
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]snapshotEntry),
	}
}

// TopWords returns the topic's top words, serving from cache within the TTL.
// The limit is fixed per cache instance by the callers, so the topic alone
// keys the cache.
func (sc *snapshotCache) TopWords(ctx context.Context, topic string, limit int64) ([]domain.WordCount, error) {
	sc.mu.RLock()
	entry, ok := sc.entries[topic]
	sc.mu.RUnlock()

	if ok && sc.clock.Now().Before(entry.expiresAt) {
		metrics.SnapshotCacheHits.Inc()
		return entry.words, nil
	}

	metrics.SnapshotCacheMisses.Inc()
	result, err, _ := sc.group.Do(topic, func() (any, error) {
		words, err := sc.store.TopWords(ctx, topic, limit)
		if err != nil {
			return nil, err
		}

		sc.mu.Lock()
		sc.entries[topic] = snapshotEntry{
			words:     words,
			expiresAt: sc.clock.Now().Add(sc.ttl),
		}
		sc.mu.Unlock()
		return words, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.WordCount), nil
}

// Invalidate drops the cached snapshot for a topic.
func (sc *snapshotCache) Invalidate(topic string) {
	sc.mu.Lock()
	delete(sc.entries, topic)
	sc.mu.Unlock()
}
