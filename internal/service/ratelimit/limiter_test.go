package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(0)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a", 3, 1), "request %d", i)
	}
	assert.False(t, l.Allow("a", 3, 1))
	assert.True(t, l.Allow("b", 3, 1), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a", 3, 1))
	assert.False(t, l.Allow("a", 3, 1))
}

func TestLimiter_ForgetsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a", 1, 1)
	l.Allow("b", 1, 1)
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("c", 1, 1)
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_FractionalRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a", 1, 0.5))
	assert.False(t, l.Allow("a", 1, 0.5))

	now = now.Add(time.Second)
	assert.False(t, l.Allow("a", 1, 0.5), "half a token is not enough")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a", 1, 0.5))
}
