package ports

import "context"

// RateLimiter throttles submissions per identity key within a rolling
// window. Allow records the submission when it is admitted. Implementations
// are swappable between process memory and a shared store without touching
// call sites.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
