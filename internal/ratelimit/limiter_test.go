package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPerClient(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(3600, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	// one token per second
	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.InDelta(t, 0, l.Tokens("10.0.0.1"), 0.001)
	assert.Equal(t, 3600, l.PerHour())
}

func TestPrune(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(60, 1)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")

	assert.Equal(t, 1, l.Prune(30*time.Minute))
	assert.Equal(t, 1, l.Len())
}
