// Package supervisor implements the process supervisor use case: ordered
// startup with readiness probes, crash restarts and orderly shutdown.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bnema/spaceport/internal/adapters/out/telemetry"
	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

// Config holds configuration needed by the supervisor.
type Config struct {
	// StartRouter binds the in-process router. It runs between
	// ROUTER_STARTING and ROUTER_UP; nil skips both states.
	StartRouter func(ctx context.Context) error
}

// Service implements the SupervisorService interface.
type Service struct {
	runner  out.ProcessRunner
	prober  out.ReadinessProber
	logs    out.ProcessLogWriter
	events  out.EventPublisher
	config  Config
	metrics *telemetry.Metrics
	now     func() time.Time

	order []*managed
	procs map[string]*managed

	mu            sync.RWMutex
	state         domain.SupervisorState
	ctx           context.Context
	cancel        context.CancelFunc
	startupFailed bool
	primaryExit   *int

	watchers     sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
	done         chan struct{}
}

// NewService creates a supervisor for specs, started in declaration order.
func NewService(
	specs []domain.ProcessSpec,
	runner out.ProcessRunner,
	prober out.ReadinessProber,
	logs out.ProcessLogWriter,
	events out.EventPublisher,
	config Config,
) *Service {
	s := &Service{
		runner: runner,
		prober: prober,
		logs:   logs,
		events: events,
		config: config,
		now:    time.Now,
		procs:  make(map[string]*managed, len(specs)),
		state:  domain.StateInit,
		done:   make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, spec := range specs {
		m := newManaged(spec)
		s.order = append(s.order, m)
		s.procs[spec.Name] = m
	}
	return s
}

func newManaged(spec domain.ProcessSpec) *managed {
	limit := rate.Inf
	if spec.Restart.Cooldown > 0 {
		limit = rate.Every(spec.Restart.Cooldown)
	}
	return &managed{
		spec:    spec,
		limiter: rate.NewLimiter(limit, 1),
		state:   domain.ProcessPending,
	}
}

// SetMetrics sets the telemetry metrics for the supervisor.
// Must be called before Start.
func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

// Start brings the router and then every process up in order. A required
// process that cannot be started or does not become ready aborts startup
// and stops everything that was started.
func (s *Service) Start(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Start",
	})
	log := zerowrap.FromCtx(ctx)

	s.mu.Lock()
	switch {
	case s.state.Terminal():
		s.mu.Unlock()
		return domain.ErrShuttingDown
	case s.state != domain.StateInit:
		s.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	if s.config.StartRouter != nil {
		if err := s.transition(ctx, domain.StateRouterStarting); err != nil {
			return err
		}
		if err := s.config.StartRouter(ctx); err != nil {
			return s.abort(ctx, log.WrapErr(err, "router failed to start"))
		}
		if err := s.transition(ctx, domain.StateRouterUp); err != nil {
			return s.interrupted(err)
		}
	}

	if err := s.transition(ctx, domain.StateBackendStarting); err != nil {
		return s.interrupted(err)
	}

	for _, m := range s.order {
		if s.State().Terminal() {
			return domain.ErrShuttingDown
		}

		spawned, err := s.startProcess(ctx, m)
		if err == nil {
			continue
		}
		if m.spec.Optional && ctx.Err() == nil && !s.State().Terminal() {
			log.Warn().Err(err).Str("process", m.spec.Name).Msg("optional process failed to start, continuing without it")
			s.handleStartFailure(m, spawned)
			continue
		}
		return s.abort(ctx, err)
	}

	if err := s.transition(ctx, domain.StateRunning); err != nil {
		return s.interrupted(err)
	}
	log.Info().Int(zerowrap.FieldCount, len(s.order)).Msg("supervisor running")
	return nil
}

// interrupted maps a failed forward transition to ErrShuttingDown when a
// shutdown overtook startup.
func (s *Service) interrupted(err error) error {
	if s.State().Terminal() {
		return domain.ErrShuttingDown
	}
	return err
}

// abort records a startup failure and stops whatever was started.
func (s *Service) abort(ctx context.Context, err error) error {
	log := zerowrap.FromCtx(ctx)

	s.mu.Lock()
	if ctx.Err() == nil && !s.state.Terminal() {
		s.startupFailed = true
	}
	s.mu.Unlock()

	log.Error().Err(err).Msg("startup failed, stopping processes")
	if shutdownErr := s.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("shutdown after failed startup was not clean")
	}
	return err
}

// Restart stops a single process and starts it again. Manual restarts of
// the same process are rate limited by its cooldown.
func (s *Service) Restart(ctx context.Context, name string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Restart",
		"process":             name,
	})
	log := zerowrap.FromCtx(ctx)

	m, ok := s.procs[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProcessNotFound, name)
	}
	if state := s.State(); state != domain.StateRunning {
		if state.Terminal() {
			return domain.ErrShuttingDown
		}
		return fmt.Errorf("%w: supervisor is %s", domain.ErrNotReady, state)
	}
	if !m.limiter.Allow() {
		return fmt.Errorf("%w: %s was restarted less than %s ago", domain.ErrRestartCooldown, name, m.spec.Restart.Cooldown)
	}

	m.op.Lock()
	defer m.op.Unlock()

	log.Info().Msg("restarting process")
	if err := s.stop(ctx, m); err != nil {
		return log.WrapErr(err, "failed to stop process")
	}

	m.mu.Lock()
	m.crashes = 0
	m.mu.Unlock()

	spawned, err := s.startProcess(ctx, m)
	if err != nil {
		s.handleStartFailure(m, spawned)
		return err
	}
	s.recordRestart(ctx, m, "manual")
	return nil
}

// Shutdown sends SIGTERM to every process group in reverse start order, waits
// up to each stop timeout, kills stragglers and waits for all exits. Only the
// first call does the work; later calls return its result.
func (s *Service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Service) shutdown(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Shutdown",
	})
	log := zerowrap.FromCtx(ctx)

	if err := s.transition(ctx, domain.StateShuttingDown); err != nil {
		return err
	}
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	cancel()

	type target struct {
		m    *managed
		proc out.Process
	}
	var targets []target
	for i := len(s.order) - 1; i >= 0; i-- {
		m := s.order[i]
		m.mu.Lock()
		proc := m.proc
		m.stopping = true
		m.mu.Unlock()
		if proc == nil {
			continue
		}

		log.Info().Str("process", m.spec.Name).Int("pid", proc.PID()).Msg("stopping process")
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			log.Warn().Err(err).Str("process", m.spec.Name).Msg("failed to signal process")
		}
		targets = append(targets, target{m: m, proc: proc})
	}

	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			return s.awaitExit(ctx, t.m.spec, t.proc)
		})
	}
	err := g.Wait()
	s.watchers.Wait()

	if terr := s.transition(ctx, domain.StateStopped); terr != nil && err == nil {
		err = terr
	}
	close(s.done)

	log.Info().Int("exit_code", s.ExitCode()).Msg("supervisor stopped")
	return err
}

// Status returns a snapshot of every process in declaration order.
func (s *Service) Status() []domain.ProcessStatus {
	statuses := make([]domain.ProcessStatus, 0, len(s.order))
	for _, m := range s.order {
		statuses = append(statuses, m.status())
	}
	return statuses
}

// State returns the current supervisor state.
func (s *Service) State() domain.SupervisorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed once the supervisor reached STOPPED.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// ExitCode returns 1 after a failed startup, the primary process' exit code
// when its exit stopped the supervisor, and 0 otherwise.
func (s *Service) ExitCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.startupFailed:
		return 1
	case s.primaryExit != nil:
		return *s.primaryExit
	}
	return 0
}

func (s *Service) transition(ctx context.Context, to domain.SupervisorState) error {
	s.mu.Lock()
	from := s.state
	if !from.CanTransitionTo(to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	s.state = to
	s.mu.Unlock()

	log := zerowrap.FromCtx(ctx)
	log.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("supervisor state changed")
	s.publish(ctx, domain.EventSupervisorState, domain.StateEventPayload{From: from, To: to})
	return nil
}

// lifecycle returns the context of background work: watchers and delayed
// restarts. It is canceled when shutdown begins.
func (s *Service) lifecycle() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		log := zerowrap.FromCtx(ctx)
		log.Warn().Err(err).Str(zerowrap.FieldEvent, string(eventType)).Msg("failed to publish event")
	}
}

func (s *Service) recordRestart(ctx context.Context, m *managed, reason string) {
	m.mu.Lock()
	m.restarts++
	restarts := m.restarts
	pid := m.pid
	m.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ProcessRestarts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("process", m.spec.Name),
			attribute.String("reason", reason),
		))
	}
	s.publish(ctx, domain.EventProcessRestarted, domain.ProcessEventPayload{
		Name:     m.spec.Name,
		PID:      pid,
		Restarts: restarts,
		Reason:   reason,
	})
}
