package supervisor

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/spaceport/internal/boundaries/out"
	outmocks "github.com/bnema/spaceport/internal/boundaries/out/mocks"
	"github.com/bnema/spaceport/internal/domain"
)

func testContext() context.Context {
	return zerowrap.WithCtx(context.Background(), zerowrap.Default())
}

// fakeProcess exits when signaled, like a well-behaved child, unless told to
// ignore SIGTERM.
type fakeProcess struct {
	pid        int
	ignoreTerm bool
	done       chan struct{}
	once       sync.Once

	mu      sync.Mutex
	signals []syscall.Signal
	exit    domain.ExitStatus
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	ignore := p.ignoreTerm
	p.mu.Unlock()

	switch {
	case sig == syscall.SIGKILL:
		p.exitWith(128+int(syscall.SIGKILL), "killed")
	case sig == syscall.SIGTERM && !ignore:
		p.exitWith(128+int(syscall.SIGTERM), "terminated")
	}
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Exit() domain.ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exit
}

func (p *fakeProcess) exitWith(code int, signal string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.exit = domain.ExitStatus{Code: code, Signal: signal}
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *fakeProcess) Signals() []syscall.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]syscall.Signal(nil), p.signals...)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type harness struct {
	t      *testing.T
	runner *outmocks.MockProcessRunner
	prober *outmocks.MockReadinessProber
	logs   *outmocks.MockProcessLogWriter
	events *outmocks.MockEventPublisher

	mu        sync.Mutex
	nextPID   int
	spawned   map[string][]*fakeProcess
	order     []string
	published []domain.Event
	// configure is applied to every fake before it is handed out.
	configure func(name string, p *fakeProcess)
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:       t,
		runner:  outmocks.NewMockProcessRunner(t),
		prober:  outmocks.NewMockReadinessProber(t),
		logs:    outmocks.NewMockProcessLogWriter(t),
		events:  outmocks.NewMockEventPublisher(t),
		nextPID: 1000,
		spawned: make(map[string][]*fakeProcess),
	}
	h.logs.EXPECT().Writer(mock.Anything).Return(nopWriteCloser{io.Discard}, nil).Maybe()
	h.events.EXPECT().Publish(mock.Anything, mock.Anything).RunAndReturn(func(eventType domain.EventType, payload any) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.published = append(h.published, domain.Event{Type: eventType, Data: payload})
		return nil
	}).Maybe()
	return h
}

func (h *harness) portsFree() {
	h.prober.EXPECT().PortInUse(mock.Anything, mock.Anything).Return(false).Maybe()
}

func (h *harness) alwaysReady() {
	h.prober.EXPECT().Probe(mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (h *harness) spawnFakes() {
	h.runner.EXPECT().Start(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, spec domain.ProcessSpec, _ io.Writer) (out.Process, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.nextPID++
			p := newFakeProcess(h.nextPID)
			if h.configure != nil {
				h.configure(spec.Name, p)
			}
			h.spawned[spec.Name] = append(h.spawned[spec.Name], p)
			h.order = append(h.order, spec.Name)
			return p, nil
		}).Maybe()
}

func (h *harness) procs(name string) []*fakeProcess {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*fakeProcess(nil), h.spawned[name]...)
}

func (h *harness) spawnOrder() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func (h *harness) states() []domain.SupervisorState {
	h.mu.Lock()
	defer h.mu.Unlock()
	var states []domain.SupervisorState
	for _, e := range h.published {
		if p, ok := e.Data.(domain.StateEventPayload); ok {
			states = append(states, p.To)
		}
	}
	return states
}

func (h *harness) count(eventType domain.EventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.published {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (h *harness) service(specs []domain.ProcessSpec, config Config) *Service {
	svc := NewService(specs, h.runner, h.prober, h.logs, h.events, config)
	h.t.Cleanup(func() { _ = svc.Shutdown(testContext()) })
	return svc
}

// testSpecs returns the default main + preview processes with test-friendly timings.
func testSpecs() []domain.ProcessSpec {
	specs := domain.DefaultTopology(true).Processes
	for i := range specs {
		specs[i].Readiness.Interval = 5 * time.Millisecond
		specs[i].Readiness.Timeout = 300 * time.Millisecond
		specs[i].StopTimeout = 200 * time.Millisecond
		specs[i].PortWait = 100 * time.Millisecond
		specs[i].Restart.Backoff = 10 * time.Millisecond
		specs[i].Restart.MaxBackoff = 50 * time.Millisecond
	}
	return specs
}

func statusOf(svc *Service, name string) domain.ProcessStatus {
	for _, st := range svc.Status() {
		if st.Name == name {
			return st
		}
	}
	return domain.ProcessStatus{}
}

func waitDone(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case <-svc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestService_StartBringsProcessesUpInOrder(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()

	var routerBound bool
	svc := h.service(testSpecs(), Config{StartRouter: func(context.Context) error {
		routerBound = true
		assert.Empty(t, h.spawnOrder(), "router binds before any backend starts")
		return nil
	}})

	require.NoError(t, svc.Start(testContext()))

	assert.True(t, routerBound)
	assert.Equal(t, domain.StateRunning, svc.State())
	assert.Equal(t, []string{domain.MainProcess, domain.PreviewProcess}, h.spawnOrder())
	assert.Equal(t, []domain.SupervisorState{
		domain.StateRouterStarting,
		domain.StateRouterUp,
		domain.StateBackendStarting,
		domain.StateRunning,
	}, h.states())

	main := statusOf(svc, domain.MainProcess)
	assert.Equal(t, domain.ProcessReady, main.State)
	assert.True(t, main.Primary)
	assert.Equal(t, "127.0.0.1:7862", main.Address)
	assert.Equal(t, h.procs(domain.MainProcess)[0].PID(), main.PID)
	assert.Equal(t, domain.ProcessReady, statusOf(svc, domain.PreviewProcess).State)
	assert.Equal(t, 2, h.count(domain.EventProcessReady))
}

func TestService_StartWithoutRouterSkipsRouterStates(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs()[:1], Config{})

	require.NoError(t, svc.Start(testContext()))

	assert.Equal(t, []domain.SupervisorState{domain.StateBackendStarting, domain.StateRunning}, h.states())
}

func TestService_StartTwice(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs(), Config{})

	require.NoError(t, svc.Start(testContext()))
	assert.ErrorIs(t, svc.Start(testContext()), domain.ErrAlreadyStarted)
}

func TestService_RouterFailureAbortsStartup(t *testing.T) {
	h := newHarness(t)
	svc := h.service(testSpecs(), Config{StartRouter: func(context.Context) error {
		return errors.New("listen tcp :7860: bind: address already in use")
	}})

	err := svc.Start(testContext())

	assert.Error(t, err)
	waitDone(t, svc)
	assert.Equal(t, domain.StateStopped, svc.State())
	assert.Equal(t, 1, svc.ExitCode())
}

func TestService_PrimaryNotReadyAbortsStartup(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.spawnFakes()
	h.prober.EXPECT().Probe(mock.Anything, mock.Anything).Return(errors.New("connection refused")).Maybe()
	svc := h.service(testSpecs(), Config{})

	err := svc.Start(testContext())

	assert.ErrorIs(t, err, domain.ErrNotReady)
	waitDone(t, svc)
	assert.Equal(t, domain.StateStopped, svc.State())
	assert.Equal(t, 1, svc.ExitCode())
	assert.Equal(t, []string{domain.MainProcess}, h.spawnOrder(), "preview is never started")

	main := h.procs(domain.MainProcess)[0]
	assert.Contains(t, main.Signals(), syscall.SIGTERM)
	assert.Equal(t, domain.ProcessStopped, statusOf(svc, domain.MainProcess).State)
}

func TestService_PortInUseAbortsStartup(t *testing.T) {
	h := newHarness(t)
	h.prober.EXPECT().PortInUse(mock.Anything, "127.0.0.1:7862").Return(true)
	svc := h.service(testSpecs(), Config{})

	err := svc.Start(testContext())

	assert.ErrorIs(t, err, domain.ErrPortInUse)
	h.runner.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, domain.ProcessFailed, statusOf(svc, domain.MainProcess).State)
}

func TestService_OptionalNotReadyIsRestarted(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.spawnFakes()
	h.prober.EXPECT().Probe(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, spec domain.ProcessSpec) error {
			if spec.Name == domain.PreviewProcess && len(h.procs(domain.PreviewProcess)) == 1 {
				return errors.New("connection refused")
			}
			return nil
		}).Maybe()
	svc := h.service(testSpecs(), Config{})

	require.NoError(t, svc.Start(testContext()))
	assert.Equal(t, domain.StateRunning, svc.State())

	first := h.procs(domain.PreviewProcess)[0]
	assert.Contains(t, first.Signals(), syscall.SIGKILL)

	require.Eventually(t, func() bool {
		return statusOf(svc, domain.PreviewProcess).State == domain.ProcessReady
	}, 3*time.Second, 10*time.Millisecond)
	assert.Len(t, h.procs(domain.PreviewProcess), 2)
	assert.Equal(t, 1, statusOf(svc, domain.PreviewProcess).Restarts)
}

func TestService_PrimaryExitStopsSupervisor(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs(), Config{})
	require.NoError(t, svc.Start(testContext()))

	h.procs(domain.MainProcess)[0].exitWith(3, "")

	waitDone(t, svc)
	assert.Equal(t, 3, svc.ExitCode())
	assert.Equal(t, domain.StateStopped, svc.State())
	assert.Contains(t, h.procs(domain.PreviewProcess)[0].Signals(), syscall.SIGTERM)

	main := statusOf(svc, domain.MainProcess)
	assert.Equal(t, domain.ProcessFailed, main.State)
	require.NotNil(t, main.ExitCode)
	assert.Equal(t, 3, *main.ExitCode)
	assert.Equal(t, "exited with code 3", main.LastError)
}

func TestService_CrashedProcessIsRestarted(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs(), Config{})
	require.NoError(t, svc.Start(testContext()))

	h.procs(domain.PreviewProcess)[0].exitWith(1, "")

	require.Eventually(t, func() bool {
		return len(h.procs(domain.PreviewProcess)) == 2 &&
			statusOf(svc, domain.PreviewProcess).State == domain.ProcessReady
	}, 3*time.Second, 10*time.Millisecond)

	st := statusOf(svc, domain.PreviewProcess)
	assert.Equal(t, 1, st.Restarts)
	assert.Equal(t, h.procs(domain.PreviewProcess)[1].PID(), st.PID)
	assert.Equal(t, domain.StateRunning, svc.State())
	assert.Equal(t, 0, svc.ExitCode())
	assert.Equal(t, 1, h.count(domain.EventProcessRestarted))
}

func TestService_RestartPolicyExhausted(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	specs := testSpecs()
	specs[1].Restart.MaxRetries = 1
	svc := h.service(specs, Config{})
	require.NoError(t, svc.Start(testContext()))

	h.procs(domain.PreviewProcess)[0].exitWith(1, "")
	require.Eventually(t, func() bool {
		return statusOf(svc, domain.PreviewProcess).State == domain.ProcessReady &&
			len(h.procs(domain.PreviewProcess)) == 2
	}, 3*time.Second, 10*time.Millisecond)

	h.procs(domain.PreviewProcess)[1].exitWith(1, "")
	require.Eventually(t, func() bool {
		return statusOf(svc, domain.PreviewProcess).State == domain.ProcessFailed
	}, 3*time.Second, 10*time.Millisecond)

	assert.Never(t, func() bool {
		return len(h.procs(domain.PreviewProcess)) > 2
	}, 200*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, domain.StateRunning, svc.State(), "an optional process never stops the supervisor")
}

func TestService_CleanExitNotRestartedOnFailurePolicy(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs(), Config{})
	require.NoError(t, svc.Start(testContext()))

	h.procs(domain.PreviewProcess)[0].exitWith(0, "")

	require.Eventually(t, func() bool {
		return statusOf(svc, domain.PreviewProcess).State == domain.ProcessExited
	}, 3*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool {
		return len(h.procs(domain.PreviewProcess)) > 1
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestService_ManualRestart(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.spawnFakes()
	svc := h.service(testSpecs(), Config{})
	ctx := testContext()

	assert.ErrorIs(t, svc.Restart(ctx, domain.PreviewProcess), domain.ErrNotReady)
	require.NoError(t, svc.Start(ctx))

	require.NoError(t, svc.Restart(ctx, domain.PreviewProcess))

	procs := h.procs(domain.PreviewProcess)
	require.Len(t, procs, 2)
	assert.Equal(t, []syscall.Signal{syscall.SIGTERM, syscall.SIGKILL}, procs[0].Signals(), "group is swept after the leader exits")
	st := statusOf(svc, domain.PreviewProcess)
	assert.Equal(t, domain.ProcessReady, st.State)
	assert.Equal(t, procs[1].PID(), st.PID)
	assert.Equal(t, 1, st.Restarts)

	assert.ErrorIs(t, svc.Restart(ctx, domain.PreviewProcess), domain.ErrRestartCooldown)
	assert.ErrorIs(t, svc.Restart(ctx, "worker"), domain.ErrProcessNotFound)

	assert.Never(t, func() bool {
		return len(h.procs(domain.PreviewProcess)) > 2
	}, 100*time.Millisecond, 20*time.Millisecond, "a stopped run is not restarted by the policy")
}

func TestService_ShutdownEscalatesToKill(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.alwaysReady()
	h.configure = func(name string, p *fakeProcess) {
		p.ignoreTerm = name == domain.MainProcess
	}
	h.spawnFakes()
	specs := testSpecs()
	specs[0].StopTimeout = 50 * time.Millisecond
	svc := h.service(specs, Config{})
	require.NoError(t, svc.Start(testContext()))

	require.NoError(t, svc.Shutdown(testContext()))

	waitDone(t, svc)
	main := h.procs(domain.MainProcess)[0]
	assert.Equal(t, []syscall.Signal{syscall.SIGTERM, syscall.SIGKILL, syscall.SIGKILL}, main.Signals())
	assert.Equal(t, domain.ProcessStopped, statusOf(svc, domain.MainProcess).State)
	assert.Equal(t, domain.ProcessStopped, statusOf(svc, domain.PreviewProcess).State)
	assert.Equal(t, 0, svc.ExitCode())

	assert.NoError(t, svc.Shutdown(testContext()), "shutdown is idempotent")
	assert.ErrorIs(t, svc.Start(testContext()), domain.ErrShuttingDown)
	assert.ErrorIs(t, svc.Restart(testContext(), domain.PreviewProcess), domain.ErrShuttingDown)
}

func TestService_ShutdownBeforeStart(t *testing.T) {
	h := newHarness(t)
	svc := h.service(testSpecs(), Config{})

	require.NoError(t, svc.Shutdown(testContext()))

	waitDone(t, svc)
	assert.Equal(t, []domain.SupervisorState{domain.StateShuttingDown, domain.StateStopped}, h.states())
}

func TestService_ReadinessNoneSkipsProbe(t *testing.T) {
	h := newHarness(t)
	h.portsFree()
	h.spawnFakes()
	specs := testSpecs()[:1]
	specs[0].Readiness.Type = domain.ReadinessNone
	svc := h.service(specs, Config{})

	require.NoError(t, svc.Start(testContext()))

	h.prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	assert.Equal(t, domain.ProcessReady, statusOf(svc, domain.MainProcess).State)
}
