package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

const (
	defaultProbeInterval = 200 * time.Millisecond
	defaultProbeTimeout  = 60 * time.Second
	maxProbeInterval     = 2 * time.Second
	defaultStopTimeout   = 10 * time.Second
	// killGrace bounds the wait for a process after SIGKILL.
	killGrace = 5 * time.Second
)

// managed tracks one declared process across restarts.
type managed struct {
	spec    domain.ProcessSpec
	limiter *rate.Limiter

	op sync.Mutex // serializes stop and start sequences

	mu         sync.Mutex
	proc       out.Process
	output     io.WriteCloser
	handled    chan struct{} // closed once the watcher processed the exit of proc
	generation int
	pid        int
	state      domain.ProcessState
	stopping   bool
	crashes    int // consecutive automatic restarts
	restarts   int
	startedAt  time.Time
	exitedAt   time.Time
	exitCode   *int
	lastError  string
}

func (m *managed) status() domain.ProcessStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := domain.ProcessStatus{
		Name:      m.spec.Name,
		PID:       m.pid,
		State:     m.state,
		Primary:   m.spec.Primary,
		Restarts:  m.restarts,
		StartedAt: m.startedAt,
		ExitedAt:  m.exitedAt,
		LastError: m.lastError,
	}
	if m.spec.Port > 0 {
		st.Address = m.spec.Address()
	}
	if m.exitCode != nil {
		code := *m.exitCode
		st.ExitCode = &code
	}
	return st
}

func (m *managed) setState(state domain.ProcessState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	if err != nil {
		m.lastError = err.Error()
	}
}

// setStateIf updates the state only while gen is the current run.
func (m *managed) setStateIf(gen int, state domain.ProcessState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen || m.proc == nil {
		return
	}
	m.state = state
	if err != nil {
		m.lastError = err.Error()
	}
}

// startProcess waits for the port, spawns the process and probes it until
// ready. spawned reports whether a process was left running or exiting.
func (s *Service) startProcess(ctx context.Context, m *managed) (spawned bool, err error) {
	spec := m.spec
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{"process": spec.Name})
	log := zerowrap.FromCtx(ctx)

	m.mu.Lock()
	m.state = domain.ProcessStarting
	m.stopping = false
	m.mu.Unlock()

	if spec.Port > 0 {
		if err := s.waitPortFree(ctx, spec); err != nil {
			m.setState(domain.ProcessFailed, err)
			log.Error().Err(err).Msg("port still bound, not spawning")
			return false, err
		}
	}

	output, err := s.logs.Writer(spec.Name)
	if err != nil {
		log.Warn().Err(err).Msg("process log sink unavailable, discarding output")
		output = nil
	}

	proc, err := s.runner.Start(ctx, spec, output)
	if err != nil {
		if output != nil {
			_ = output.Close()
		}
		m.setState(domain.ProcessFailed, err)
		return false, log.WrapErr(err, "failed to start process")
	}

	gen, err := s.attach(ctx, m, proc, output)
	if err != nil {
		return true, err
	}
	log.Info().Int("pid", proc.PID()).Strs("command", spec.Command).Msg("process started")

	if err := s.waitReady(ctx, spec, proc); err != nil {
		m.setStateIf(gen, domain.ProcessFailed, err)
		log.Error().Err(err).Msg("process did not become ready")
		return true, err
	}

	m.setStateIf(gen, domain.ProcessReady, nil)
	s.publish(ctx, domain.EventProcessReady, domain.ProcessEventPayload{Name: spec.Name, PID: proc.PID()})
	log.Info().Str("address", spec.Address()).Msg("process ready")
	return true, nil
}

// attach records a freshly spawned process and starts its watcher. A process
// spawned after shutdown began is killed right away.
func (s *Service) attach(ctx context.Context, m *managed, proc out.Process, output io.WriteCloser) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.Terminal() {
		_ = proc.Signal(syscall.SIGKILL)
		go func() {
			<-proc.Done()
			if output != nil {
				_ = output.Close()
			}
		}()
		m.setState(domain.ProcessStopped, nil)
		return 0, domain.ErrShuttingDown
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	handled := make(chan struct{})
	m.proc = proc
	m.output = output
	m.handled = handled
	m.pid = proc.PID()
	m.startedAt = s.now()
	m.exitedAt = time.Time{}
	m.exitCode = nil
	m.lastError = ""
	m.mu.Unlock()

	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("process", m.spec.Name))
		s.metrics.ProcessStarts.Add(ctx, 1, attrs)
		s.metrics.ProcessRunning.Add(ctx, 1, attrs)
	}
	s.publish(ctx, domain.EventProcessStarted, domain.ProcessEventPayload{Name: m.spec.Name, PID: proc.PID()})

	s.watchers.Add(1)
	go s.watch(m, proc, gen, handled)
	return gen, nil
}

// waitPortFree polls until nothing listens on the process port, for at most
// PortWait.
func (s *Service) waitPortFree(ctx context.Context, spec domain.ProcessSpec) error {
	addr := spec.Address()
	err := poll(ctx, 50*time.Millisecond, spec.PortWait, func() error {
		if s.prober.PortInUse(ctx, addr) {
			return domain.ErrPortInUse
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s is still bound after %s", domain.ErrPortInUse, addr, spec.PortWait)
}

// waitReady probes the process with exponential backoff until it is ready,
// it exits, or the readiness timeout elapses.
func (s *Service) waitReady(ctx context.Context, spec domain.ProcessSpec, proc out.Process) error {
	readiness := spec.Readiness
	if readiness.Type == "" || readiness.Type == domain.ReadinessNone {
		return nil
	}
	timeout := readiness.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var lastErr error
	err := poll(ctx, readiness.Interval, timeout, func() error {
		select {
		case <-proc.Done():
			return backoff.Permanent(fmt.Errorf("%w: %s exited with code %d", domain.ErrProcessExited, spec.Name, proc.Exit().Code))
		default:
		}
		lastErr = s.prober.Probe(ctx, spec)
		return lastErr
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrProcessExited), ctx.Err() != nil:
		return err
	}
	return fmt.Errorf("%w: %s after %s: %v", domain.ErrNotReady, spec.Name, timeout, lastErr)
}

// poll retries op with exponential backoff starting at interval. A zero
// timeout tries once.
func poll(ctx context.Context, interval, timeout time.Duration, op backoff.Operation) error {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if timeout <= 0 {
		return op()
	}
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(interval),
		backoff.WithMaxInterval(maxProbeInterval),
		backoff.WithMaxElapsedTime(timeout),
	)
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// stop terminates the current run of m, if any.
func (s *Service) stop(ctx context.Context, m *managed) error {
	m.mu.Lock()
	proc, handled := m.proc, m.handled
	if proc != nil {
		m.stopping = true
	}
	m.mu.Unlock()
	if proc == nil {
		return nil
	}

	log := zerowrap.FromCtx(ctx)
	log.Info().Int("pid", proc.PID()).Msg("stopping process")
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		log.Warn().Err(err).Msg("failed to signal process")
	}
	if err := s.awaitExit(ctx, m.spec, proc); err != nil {
		return err
	}
	<-handled
	return nil
}

// awaitExit waits for a signaled process, escalating to SIGKILL after the
// stop timeout. The group is killed once the leader is gone so no member
// outlives it.
func (s *Service) awaitExit(ctx context.Context, spec domain.ProcessSpec, proc out.Process) error {
	log := zerowrap.FromCtx(ctx)
	timeout := spec.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-proc.Done():
	case <-timer.C:
		log.Warn().Str("process", spec.Name).Dur("stop_timeout", timeout).Msg("process did not stop in time, killing")
		_ = proc.Signal(syscall.SIGKILL)
	case <-ctx.Done():
		_ = proc.Signal(syscall.SIGKILL)
	}

	select {
	case <-proc.Done():
	case <-time.After(killGrace):
		return fmt.Errorf("process %s (pid %d) did not exit after SIGKILL", spec.Name, proc.PID())
	}

	_ = proc.Signal(syscall.SIGKILL)
	return nil
}
