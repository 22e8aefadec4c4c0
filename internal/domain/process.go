package domain

import (
	"net"
	"strconv"
	"time"
)

// RestartMode selects when a crashed process is restarted.
type RestartMode string

const (
	RestartNever     RestartMode = "never"
	RestartOnFailure RestartMode = "on-failure"
	RestartAlways    RestartMode = "always"
)

// RestartPolicy governs how the supervisor reacts to a process exit.
type RestartPolicy struct {
	Mode        RestartMode
	MaxRetries  int           // 0 means unlimited
	Backoff     time.Duration // first restart delay, doubled for each consecutive crash
	MaxBackoff  time.Duration
	Cooldown    time.Duration // minimum interval between manual restarts
	StableAfter time.Duration // uptime after which the crash history is cleared
}

// ShouldRestart reports whether a process that exited with exitCode after
// restarts consecutive restarts must be started again.
func (p RestartPolicy) ShouldRestart(exitCode, restarts int) bool {
	if p.MaxRetries > 0 && restarts >= p.MaxRetries {
		return false
	}
	switch p.Mode {
	case RestartAlways:
		return true
	case RestartOnFailure:
		return exitCode != 0
	default:
		return false
	}
}

// Delay returns the wait before the n-th consecutive restart (n starts at 1).
func (p RestartPolicy) Delay(n int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	shift := n - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 6 {
		shift = 6
	}
	d := p.Backoff << uint(shift) // #nosec G115 -- shift is bounded [0,6]
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// ReadinessType selects how a process is probed after spawning.
type ReadinessType string

const (
	ReadinessTCP  ReadinessType = "tcp"
	ReadinessHTTP ReadinessType = "http"
	ReadinessNone ReadinessType = "none"
)

// Readiness describes the active readiness probe of a process.
type Readiness struct {
	Type     ReadinessType
	Path     string        // HTTP probe path
	Interval time.Duration // initial interval between probes
	Timeout  time.Duration // total time allowed to become ready
}

// ProcessSpec declares a managed process.
type ProcessSpec struct {
	Name        string
	Command     []string
	Dir         string
	Env         map[string]string
	EnvFile     string // dotenv file read on every spawn; Env wins on conflicts
	Host        string
	Port        int
	Primary     bool // its exit terminates the supervisor with its exit code
	Optional    bool // failing readiness does not abort startup
	Restart     RestartPolicy
	Readiness   Readiness
	StopTimeout time.Duration // grace period between SIGTERM and SIGKILL
	PortWait    time.Duration // how long to wait for the port to be free before spawning
}

// Address returns host:port the process is expected to listen on.
func (p ProcessSpec) Address() string {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(p.Port))
}

// ProcessState is the lifecycle state of a managed process.
type ProcessState string

const (
	ProcessPending  ProcessState = "pending"
	ProcessStarting ProcessState = "starting"
	ProcessReady    ProcessState = "ready"
	ProcessBackoff  ProcessState = "backoff"
	ProcessExited   ProcessState = "exited"
	ProcessFailed   ProcessState = "failed"
	ProcessStopped  ProcessState = "stopped"
)

// ExitStatus describes how a process terminated.
type ExitStatus struct {
	Code   int    // shell convention: 128+signo for signal deaths, -1 when unknown
	Signal string // name of the terminating signal, if any
	Err    error  // error from waiting on the process, if any
}

// Success reports whether the process exited cleanly.
func (e ExitStatus) Success() bool {
	return e.Code == 0 && e.Err == nil
}

// ProcessStatus is a point-in-time snapshot of a managed process.
type ProcessStatus struct {
	Name      string       `json:"name"`
	PID       int          `json:"pid,omitempty"`
	State     ProcessState `json:"state"`
	Address   string       `json:"address"`
	Primary   bool         `json:"primary"`
	Restarts  int          `json:"restarts"`
	StartedAt time.Time    `json:"started_at,omitempty"`
	ExitedAt  time.Time    `json:"exited_at,omitempty"`
	ExitCode  *int         `json:"exit_code,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}
