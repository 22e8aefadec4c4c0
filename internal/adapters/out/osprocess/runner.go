//go:build unix

// Package osprocess spawns managed processes in their own process group.
package osprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/joho/godotenv"

	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

// outputWaitDelay bounds how long Wait keeps copying output after the
// process exited, for children that leaked the pipe to grandchildren.
const outputWaitDelay = 2 * time.Second

// Runner implements the ProcessRunner interface on top of os/exec.
type Runner struct {
	baseEnv []string
}

// NewRunner creates a runner whose children inherit the current environment.
func NewRunner() *Runner {
	return &Runner{baseEnv: os.Environ()}
}

// Start spawns spec.Command in a new process group.
func (r *Runner) Start(ctx context.Context, spec domain.ProcessSpec, output io.Writer) (out.Process, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "osprocess",
		zerowrap.FieldAction:  "Start",
		"process":             spec.Name,
	})
	log := zerowrap.FromCtx(ctx)

	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("%w: process %q has no command", domain.ErrInvalidConfig, spec.Name)
	}

	env := r.baseEnv
	if spec.EnvFile != "" {
		fileEnv, err := readEnvFile(spec)
		if err != nil {
			return nil, log.WrapErrWithFields(err, "failed to read env file", map[string]any{"env_file": spec.EnvFile})
		}
		env = mergeEnv(env, fileEnv)
	}

	// #nosec G204 -- commands come from the operator's configuration
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(env, spec.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = outputWaitDelay
	if output != nil {
		cmd.Stdout = output
		cmd.Stderr = output
	}

	if err := cmd.Start(); err != nil {
		return nil, log.WrapErrWithFields(err, "failed to spawn process", map[string]any{"command": spec.Command[0]})
	}

	p := &process{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	go p.wait()

	log.Debug().Int("pid", p.pid).Strs("command", spec.Command).Msg("process spawned")
	return p, nil
}

type process struct {
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	mu   sync.Mutex
	exit domain.ExitStatus
}

func (p *process) PID() int {
	return p.pid
}

// Signal delivers sig to the process group, falling back to the leader
// alone when the group is already gone.
func (p *process) Signal(sig syscall.Signal) error {
	select {
	case <-p.done:
		// The leader is reaped; its group may still hold stragglers.
		if err := syscall.Kill(-p.pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
		return nil
	default:
	}

	err := syscall.Kill(-p.pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		err = syscall.Kill(p.pid, sig)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
	}
	return err
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Exit() domain.ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exit
}

func (p *process) wait() {
	err := p.cmd.Wait()

	status := exitStatus(p.cmd.ProcessState, err)
	p.mu.Lock()
	p.exit = status
	p.mu.Unlock()
	close(p.done)
}

// exitStatus maps a finished process to shell exit code conventions.
func exitStatus(state *os.ProcessState, waitErr error) domain.ExitStatus {
	if state == nil {
		return domain.ExitStatus{Code: -1, Err: waitErr}
	}

	status := domain.ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Code = 128 + int(ws.Signal())
		status.Signal = ws.Signal().String()
	}

	// ExitError only restates the code above.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		status.Err = waitErr
	}
	return status
}

// readEnvFile parses the process's dotenv file. A relative path is taken
// from the process's working directory.
func readEnvFile(spec domain.ProcessSpec) (map[string]string, error) {
	path := spec.EnvFile
	if !filepath.IsAbs(path) && spec.Dir != "" {
		path = filepath.Join(spec.Dir, path)
	}
	return godotenv.Read(path)
}

// mergeEnv overlays extra on base. Keys from extra win and are appended in
// sorted order.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[key]; !overridden {
			env = append(env, kv)
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
