package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicRateLimiter_BurstThenDeny(t *testing.T) {
	limiter := newTopicRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("gophers"), "request %d within burst", i)
	}
	assert.False(t, limiter.Allow("gophers"))
}

func TestTopicRateLimiter_TopicsAreIndependent(t *testing.T) {
	limiter := newTopicRateLimiter(1, 1)

	assert.True(t, limiter.Allow("alpha"))
	assert.False(t, limiter.Allow("alpha"))
	assert.True(t, limiter.Allow("beta"))
}
