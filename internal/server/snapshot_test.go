package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int64
	slow  chan struct{}
}

func (p *countingProvider) TopWords(_ context.Context, topic string, _ int64) ([]domain.WordCount, error) {
	p.calls.Add(1)
	if p.slow != nil {
		<-p.slow
	}
	return []domain.WordCount{{Text: topic, Value: 1}}, nil
}

func TestSnapshotCache_ServesFromCacheWithinTTL(t *testing.T) {
	provider := &countingProvider{}
	clock := clockwork.NewFakeClock()
	cache := newSnapshotCache(provider, clock, time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		words, err := cache.TopWords(ctx, "gophers", 50)
		require.NoError(t, err)
		require.Len(t, words, 1)
	}

	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestSnapshotCache_ExpiresAfterTTL(t *testing.T) {
	provider := &countingProvider{}
	clock := clockwork.NewFakeClock()
	cache := newSnapshotCache(provider, clock, time.Second)
	ctx := context.Background()

	_, err := cache.TopWords(ctx, "gophers", 50)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	_, err = cache.TopWords(ctx, "gophers", 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestSnapshotCache_TopicsCachedIndependently(t *testing.T) {
	provider := &countingProvider{}
	clock := clockwork.NewFakeClock()
	cache := newSnapshotCache(provider, clock, time.Second)
	ctx := context.Background()

	alpha, err := cache.TopWords(ctx, "alpha", 50)
	require.NoError(t, err)
	beta, err := cache.TopWords(ctx, "beta", 50)
	require.NoError(t, err)

	assert.Equal(t, "alpha", alpha[0].Text)
	assert.Equal(t, "beta", beta[0].Text)
	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestSnapshotCache_InvalidateForcesReload(t *testing.T) {
	provider := &countingProvider{}
	clock := clockwork.NewFakeClock()
	cache := newSnapshotCache(provider, clock, time.Hour)
	ctx := context.Background()

	_, err := cache.TopWords(ctx, "gophers", 50)
	require.NoError(t, err)

	cache.Invalidate("gophers")

	_, err = cache.TopWords(ctx, "gophers", 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestSnapshotCache_ConcurrentMissesCollapse(t *testing.T) {
	provider := &countingProvider{slow: make(chan struct{})}
	cache := newSnapshotCache(provider, clockwork.NewRealClock(), time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.TopWords(ctx, "gophers", 50)
			assert.NoError(t, err)
		}()
	}

	// Let every goroutine reach the singleflight gate, then release the
	// single underlying read.
	require.Eventually(t, func() bool {
		return provider.calls.Load() == 1
	}, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(provider.slow)
	wg.Wait()

	assert.EqualValues(t, 1, provider.calls.Load())
}
