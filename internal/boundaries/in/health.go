package in

import (
	"context"

	"github.com/bnema/spaceport/internal/domain"
)

// HealthService defines the contract for the liveness report.
type HealthService interface {
	// Report aggregates supervisor and upstream state.
	Report(ctx context.Context) domain.HealthReport
}
