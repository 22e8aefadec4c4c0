package supervisor

import (
	"context"
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

// watch waits for one run of a process to end and reacts to its exit.
func (s *Service) watch(m *managed, proc out.Process, gen int, handled chan<- struct{}) {
	defer s.watchers.Done()
	defer close(handled)
	<-proc.Done()
	s.handleExit(m, gen, proc.Exit())
}

func (s *Service) handleExit(m *managed, gen int, status domain.ExitStatus) {
	ctx := zerowrap.CtxWithFields(s.lifecycle(), map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Monitor",
		"process":             m.spec.Name,
	})
	log := zerowrap.FromCtx(ctx)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	now := s.now()
	uptime := now.Sub(m.startedAt)
	code := status.Code
	pid := m.pid
	output := m.output
	stopping := m.stopping

	m.proc = nil
	m.output = nil
	m.handled = nil
	m.exitedAt = now
	m.exitCode = &code
	switch {
	case stopping:
		m.state = domain.ProcessStopped
	case status.Success():
		m.state = domain.ProcessExited
	default:
		m.state = domain.ProcessFailed
	}
	// A readiness failure recorded for this run takes precedence.
	switch {
	case status.Err != nil:
		m.lastError = status.Err.Error()
	case stopping || m.lastError != "":
	case status.Signal != "":
		m.lastError = "terminated by signal " + status.Signal
	case !status.Success():
		m.lastError = fmt.Sprintf("exited with code %d", code)
	}
	restarts := m.restarts
	m.mu.Unlock()

	if output != nil {
		_ = output.Close()
	}
	if s.metrics != nil {
		s.metrics.ProcessExits.Add(ctx, 1, metric.WithAttributes(
			attribute.String("process", m.spec.Name),
			attribute.String("exit_code", strconv.Itoa(code)),
		))
		s.metrics.ProcessRunning.Add(ctx, -1, metric.WithAttributes(attribute.String("process", m.spec.Name)))
	}
	s.publish(ctx, domain.EventProcessExited, domain.ProcessEventPayload{
		Name:     m.spec.Name,
		PID:      pid,
		ExitCode: code,
		Restarts: restarts,
		Reason:   status.Signal,
	})

	if stopping || s.State().Terminal() {
		log.Debug().Int("exit_code", code).Msg("process stopped")
		return
	}

	if m.spec.Primary {
		log.Warn().
			Int("pid", pid).
			Int("exit_code", code).
			Dur("uptime", uptime).
			Msg("primary process exited, shutting down")
		s.mu.Lock()
		if s.primaryExit == nil {
			s.primaryExit = &code
		}
		s.mu.Unlock()
		go func() {
			if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("shutdown after primary exit was not clean")
			}
		}()
		return
	}

	log.Warn().
		Int("pid", pid).
		Int("exit_code", code).
		Str("signal", status.Signal).
		Dur("uptime", uptime).
		Msg("process exited")
	s.applyRestartPolicy(ctx, m, code, uptime)
}

// applyRestartPolicy schedules a delayed restart when the policy asks for
// one. A run that stayed up for StableAfter clears the crash history first.
func (s *Service) applyRestartPolicy(ctx context.Context, m *managed, exitCode int, uptime time.Duration) {
	log := zerowrap.FromCtx(ctx)
	policy := m.spec.Restart

	m.mu.Lock()
	if policy.StableAfter > 0 && uptime >= policy.StableAfter && m.crashes > 0 {
		m.crashes = 0
		log.Info().Dur("uptime", uptime).Msg("process was stable, cleared crash history")
	}
	if !policy.ShouldRestart(exitCode, m.crashes) {
		crashes := m.crashes
		m.mu.Unlock()
		log.Warn().
			Str("mode", string(policy.Mode)).
			Int("exit_code", exitCode).
			Int("consecutive", crashes).
			Msg("process will not be restarted")
		return
	}
	m.crashes++
	attempt := m.crashes
	delay := policy.Delay(attempt)
	gen := m.generation
	m.state = domain.ProcessBackoff
	m.mu.Unlock()

	log.Info().
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("restarting process after backoff")
	go s.restartAfter(m, gen, delay)
}

// restartAfter restarts m once delay has passed unless shutdown began or the
// process was restarted by other means in the meantime.
func (s *Service) restartAfter(m *managed, gen int, delay time.Duration) {
	lifecycle := s.lifecycle()
	ctx := zerowrap.CtxWithFields(lifecycle, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Monitor",
		"process":             m.spec.Name,
	})

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	current := m.generation == gen && m.state == domain.ProcessBackoff
	m.mu.Unlock()
	if !current || s.State().Terminal() {
		return
	}

	spawned, err := s.startProcess(ctx, m)
	if err != nil {
		log := zerowrap.FromCtx(ctx)
		log.Warn().Err(err).Msg("restart failed")
		s.handleStartFailure(m, spawned)
		return
	}
	s.recordRestart(ctx, m, "crash")
}

// handleStartFailure routes a failed start into the restart policy. A
// process that was spawned but never became ready is killed; its watcher
// then applies the policy to the exit.
func (s *Service) handleStartFailure(m *managed, spawned bool) {
	lifecycle := s.lifecycle()
	if lifecycle.Err() != nil || s.State().Terminal() {
		return
	}

	if spawned {
		m.mu.Lock()
		proc := m.proc
		m.mu.Unlock()
		if proc != nil {
			_ = proc.Signal(syscall.SIGKILL)
		}
		return
	}

	ctx := zerowrap.CtxWithFields(lifecycle, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Monitor",
		"process":             m.spec.Name,
	})
	s.applyRestartPolicy(ctx, m, -1, 0)
}
