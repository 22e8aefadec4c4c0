package domain

// SupervisorState is the lifecycle state of the supervisor.
//
//	INIT → ROUTER_STARTING → ROUTER_UP → BACKEND_STARTING → RUNNING
//	  └──────────────────────────────────┘  (no in-process router)
//	any state except STOPPED → SHUTTING_DOWN → STOPPED
type SupervisorState string

const (
	StateInit            SupervisorState = "init"
	StateRouterStarting  SupervisorState = "router_starting"
	StateRouterUp        SupervisorState = "router_up"
	StateBackendStarting SupervisorState = "backend_starting"
	StateRunning         SupervisorState = "running"
	StateShuttingDown    SupervisorState = "shutting_down"
	StateStopped         SupervisorState = "stopped"
)

var forwardTransitions = map[SupervisorState][]SupervisorState{
	StateInit:            {StateRouterStarting, StateBackendStarting},
	StateRouterStarting:  {StateRouterUp},
	StateRouterUp:        {StateBackendStarting},
	StateBackendStarting: {StateRunning},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s SupervisorState) CanTransitionTo(next SupervisorState) bool {
	switch s {
	case StateStopped:
		return false
	case StateShuttingDown:
		return next == StateStopped
	}
	if next == StateShuttingDown {
		return true
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the supervisor is stopping or stopped.
func (s SupervisorState) Terminal() bool {
	return s == StateShuttingDown || s == StateStopped
}
