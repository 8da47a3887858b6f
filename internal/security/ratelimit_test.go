package security

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	allow := newRateLimiter(3, time.Minute, clock.Now)

	assert.True(t, allow("client-a"))
	assert.True(t, allow("client-a"))
	assert.True(t, allow("client-a"))
	assert.False(t, allow("client-a"), "4th call in window must be rejected")

	assert.True(t, allow("client-b"), "identifiers are independent")

	clock.Advance(61 * time.Second)
	assert.True(t, allow("client-a"), "a new window starts after expiry")
}

func TestRateLimiter_ZeroMax(t *testing.T) {
	allow := NewRateLimiter(0, time.Minute)
	assert.False(t, allow("anyone"))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	allow := NewRateLimiter(50, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
