// Package out defines output ports (interfaces) used by the use cases.
package out

import (
	"context"
	"io"
	"syscall"

	"github.com/bnema/spaceport/internal/domain"
)

// Process is a handle on a spawned OS process.
type Process interface {
	// PID returns the operating system process id.
	PID() int

	// Signal delivers sig to the whole process group.
	Signal(sig syscall.Signal) error

	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}

	// Exit returns the exit status. Only valid after Done is closed.
	Exit() domain.ExitStatus
}

// ProcessRunner spawns managed processes.
type ProcessRunner interface {
	// Start spawns the process described by spec, writing its combined
	// stdout and stderr to output.
	Start(ctx context.Context, spec domain.ProcessSpec, output io.Writer) (Process, error)
}

// ReadinessProber checks whether a process accepts traffic.
type ReadinessProber interface {
	// Probe performs a single readiness check. A nil error means ready.
	Probe(ctx context.Context, spec domain.ProcessSpec) error

	// PortInUse reports whether something is listening on addr.
	PortInUse(ctx context.Context, addr string) bool
}
