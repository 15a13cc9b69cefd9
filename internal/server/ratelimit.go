package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// topicRateLimiter holds one token bucket per topic, guarding comment
// submission. Buckets are created on first use and live for the process
// lifetime; topic cardinality is moderate.
type topicRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newTopicRateLimiter(ratePerSecond float64, burst int) *topicRateLimiter {
	return &topicRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(ratePerSecond),
		burst:    burst,
	}
}

// Allow reports whether the topic may accept another comment now.
func (t *topicRateLimiter) Allow(topic string) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[topic]
	if !ok {
		limiter = rate.NewLimiter(t.rate, t.burst)
		t.limiters[topic] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}
