package guard

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultWindow is the rolling window submissions are counted in.
	DefaultWindow = time.Hour
	// DefaultMaxSubmissions live entries in the window reject the next one.
	DefaultMaxSubmissions = 3

	limiterEntries = 8192
)

// MemoryLimiter is a sliding-window rate limiter held in process memory.
// It implements ports.RateLimiter. Lossy on restart; an anti-abuse control,
// not a correctness guarantee.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *lru.LRU[string, []time.Time]
	window  time.Duration
	max     int
	now     func() time.Time
}

// NewMemoryLimiter creates a limiter admitting at most max submissions per
// key within window. Non-positive arguments fall back to the defaults.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultMaxSubmissions
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		windows: lru.NewLRU[string, []time.Time](limiterEntries, nil, window),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow records the submission and admits it unless the key already holds
// max live entries inside the window. Expired entries are discarded first.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key = NormalizeIdentity(key)
	now := l.now()
	cutoff := now.Add(-l.window)

	stamps, _ := l.windows.Get(key)
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.max {
		l.windows.Add(key, live)
		return false, nil
	}

	live = append(live, now)
	l.windows.Add(key, live)
	return true, nil
}
