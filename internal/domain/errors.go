package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Routing errors
	ErrRouteNotFound    = errors.New("route not found")
	ErrUpstreamNotFound = errors.New("upstream not found")
	ErrUpstreamFailed   = errors.New("upstream failed")

	// Config errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// Process errors
	ErrProcessNotFound = errors.New("process not found")
	ErrPortInUse       = errors.New("port already in use")
	ErrNotReady        = errors.New("process did not become ready")
	ErrRestartCooldown = errors.New("restart on cooldown")
	ErrProcessExited   = errors.New("process exited during startup")

	// Supervisor errors
	ErrInvalidTransition = errors.New("invalid supervisor state transition")
	ErrAlreadyStarted    = errors.New("supervisor already started")
	ErrShuttingDown      = errors.New("supervisor is shutting down")
)
