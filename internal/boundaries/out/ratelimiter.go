package out

import "context"

// RateLimiter defines the contract for admitting proxied requests.
type RateLimiter interface {
	// Allow checks if a request identified by key is allowed.
	// Key is "global" or "ip:<address>".
	Allow(ctx context.Context, key string) bool

	// AllowN checks if n requests identified by key are allowed.
	AllowN(ctx context.Context, key string, n int) bool
}
