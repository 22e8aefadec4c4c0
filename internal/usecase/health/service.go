// Package health implements the liveness report served by the router.
package health

import (
	"context"

	"github.com/bnema/zerowrap"

	"github.com/bnema/spaceport/internal/boundaries/in"
	"github.com/bnema/spaceport/internal/domain"
)

// Service implements the HealthService interface.
type Service struct {
	router     in.RouterService
	supervisor in.SupervisorService
}

// NewService creates a new health service. supervisor is nil when the
// processes are managed elsewhere; router is nil when no router runs
// in-process.
func NewService(router in.RouterService, supervisor in.SupervisorService) *Service {
	return &Service{
		router:     router,
		supervisor: supervisor,
	}
}

// Report aggregates supervisor state, process snapshots and the passive
// health of every upstream.
func (s *Service) Report(ctx context.Context) domain.HealthReport {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Report",
	})
	log := zerowrap.FromCtx(ctx)

	report := domain.HealthReport{Status: domain.HealthStatusOK}

	if s.router != nil {
		report.Routes = len(s.router.Routes())
		report.Upstreams = s.router.UpstreamHealth()
	}

	if s.supervisor != nil {
		report.Managed = true
		report.State = s.supervisor.State()
		report.Processes = s.supervisor.Status()
		report.Status = statusFor(report.State)
	}

	log.Debug().
		Str("status", report.Status).
		Str("state", string(report.State)).
		Int("processes", len(report.Processes)).
		Msg("health report built")

	return report
}

func statusFor(state domain.SupervisorState) string {
	switch {
	case state == domain.StateRunning:
		return domain.HealthStatusOK
	case state.Terminal():
		return domain.HealthStatusStopping
	default:
		return domain.HealthStatusStarting
	}
}
