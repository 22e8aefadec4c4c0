package domain

import "time"

// EventType defines the type of event that occurred.
type EventType string

const (
	EventProcessStarted   EventType = "process.started"
	EventProcessReady     EventType = "process.ready"
	EventProcessExited    EventType = "process.exited"
	EventProcessRestarted EventType = "process.restarted"
	EventSupervisorState  EventType = "supervisor.state"
	EventPreviewChanged   EventType = "preview.changed"
)

// Event represents a domain event that occurred in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Process   string
	Data      any
}

// ProcessEventPayload contains data for process events.
type ProcessEventPayload struct {
	Name     string
	PID      int
	ExitCode int
	Restarts int
	Reason   string
}

// StateEventPayload contains data for supervisor.state events.
type StateEventPayload struct {
	From SupervisorState
	To   SupervisorState
}

// PreviewChangedPayload contains data for preview.changed events.
type PreviewChangedPayload struct {
	Dir   string
	Files []string
}
