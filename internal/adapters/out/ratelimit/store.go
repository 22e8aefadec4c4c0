package ratelimit

import (
	"fmt"

	"github.com/bnema/zerowrap"

	"github.com/bnema/spaceport/internal/boundaries/out"
)

// NewStore creates a RateLimiter based on the configured backend.
// A non-positive rps disables limiting and returns nil.
func NewStore(backend string, rps float64, burst int, log zerowrap.Logger) (out.RateLimiter, error) {
	if rps <= 0 {
		return nil, nil
	}
	if burst <= 0 {
		return nil, fmt.Errorf("rate limit burst must be positive, got %d", burst)
	}
	switch backend {
	case "memory", "":
		return NewMemoryStore(rps, burst, log), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", backend)
	}
}
