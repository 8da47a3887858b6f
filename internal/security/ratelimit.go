package security

import (
	"sync"
	"time"
)

type rateWindow struct {
	count     int
	resetTime time.Time
}

// NewRateLimiter returns a fixed-window limiter keyed by identifier. The
// returned func reports false once an identifier has made maxRequests
// calls inside the current window. State is process-local.
func NewRateLimiter(maxRequests int, window time.Duration) func(identifier string) bool {
	return newRateLimiter(maxRequests, window, time.Now)
}

func newRateLimiter(maxRequests int, window time.Duration, now func() time.Time) func(string) bool {
	var mu sync.Mutex
	windows := make(map[string]*rateWindow)

	return func(identifier string) bool {
		mu.Lock()
		defer mu.Unlock()

		current := now()

		for id, w := range windows {
			if !current.Before(w.resetTime) {
				delete(windows, id)
			}
		}

		if maxRequests <= 0 {
			return false
		}

		w, ok := windows[identifier]
		if !ok {
			windows[identifier] = &rateWindow{count: 1, resetTime: current.Add(window)}
			return true
		}

		if w.count >= maxRequests {
			return false
		}
		w.count++
		return true
	}
}
