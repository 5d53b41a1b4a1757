package auth

import (
	"sync"
	"time"
)

// LoginLimiter bounds the rate of credential-bearing login attempts.
// Keys are caller-chosen (typically username plus remote host) so a
// single source cannot brute-force one account or spray many.
type LoginLimiter interface {
	Allow(key string) error
}

// InProcessLimiter is a fixed-window limiter tracking attempt counts
// per key in memory.
type InProcessLimiter struct {
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	counters map[string]*counter

	// now is overridable in tests.
	now func() time.Time
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a limiter allowing maxAttempts per window.
// A non-positive maxAttempts disables limiting.
func NewInProcessLimiter(maxAttempts int, window time.Duration) *InProcessLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &InProcessLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		counters:    make(map[string]*counter),
		now:         time.Now,
	}
}

// Allow checks whether another attempt for key is within the limit.
func (l *InProcessLimiter) Allow(key string) error {
	if l.maxAttempts <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= l.window {
		// New window. Opportunistically drop stale entries so the map
		// does not grow without bound under username spraying.
		if len(l.counters) > 8192 {
			for k, v := range l.counters {
				if now.Sub(v.windowAt) >= l.window {
					delete(l.counters, k)
				}
			}
		}
		l.counters[key] = &counter{count: 1, windowAt: now}
		return nil
	}

	c.count++
	if c.count > l.maxAttempts {
		return ErrTooManyRequests
	}

	return nil
}
