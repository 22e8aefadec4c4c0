package in

import (
	"context"

	"github.com/bnema/spaceport/internal/domain"
)

// SupervisorService defines the contract for managing backend processes.
type SupervisorService interface {
	// Start brings every declared process up in order and returns once the
	// supervisor is RUNNING or startup failed.
	Start(ctx context.Context) error

	// Restart stops and starts a single process again.
	Restart(ctx context.Context, name string) error

	// Shutdown stops every process in reverse start order.
	Shutdown(ctx context.Context) error

	// Status returns a snapshot of every managed process.
	Status() []domain.ProcessStatus

	// State returns the current supervisor state.
	State() domain.SupervisorState

	// Done is closed once the supervisor reached STOPPED.
	Done() <-chan struct{}

	// ExitCode is the exit code the hosting program should terminate with.
	ExitCode() int
}
