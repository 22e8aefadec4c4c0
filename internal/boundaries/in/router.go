// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (HTTP, CLI)
// and the business logic (use cases).
package in

import (
	"net/http"

	"github.com/bnema/spaceport/internal/domain"
)

// RouterService defines the contract for prefix-based reverse proxying.
type RouterService interface {
	// ServeHTTP matches, rewrites and forwards a request to its upstream.
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	// Match returns the rule with the longest prefix matching the path.
	Match(path string) (domain.RouteRule, bool)

	// Routes returns the route table in match order.
	Routes() []domain.RouteRule

	// UpstreamHealth returns the passive health of every upstream.
	UpstreamHealth() []domain.UpstreamHealth

	// Close releases pooled upstream connections.
	Close()
}
