package ports

import "context"

// RateLimiter answers whether a caller may proceed. Keys are per API key;
// backends decide the window semantics (in-memory token bucket for a single
// instance, Redis fixed window for a fleet).
type RateLimiter interface {
	// Allow consumes one unit of budget for the key. A backend error fails
	// open — availability over strictness for a limiter.
	Allow(ctx context.Context, key string) (bool, error)
}
