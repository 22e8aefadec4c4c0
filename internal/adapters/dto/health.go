package dto

import "time"

// HealthResponse is returned by the router health endpoint.
type HealthResponse struct {
	Status    string           `json:"status"`
	State     string           `json:"state,omitempty"`
	Managed   bool             `json:"managed"`
	Routes    int              `json:"routes"`
	Processes []ProcessStatus  `json:"processes,omitempty"`
	Upstreams []UpstreamStatus `json:"upstreams,omitempty"`
}

// ProcessStatus represents a managed process in the health response.
type ProcessStatus struct {
	Name      string     `json:"name"`
	PID       int        `json:"pid,omitempty"`
	State     string     `json:"state"`
	Address   string     `json:"address,omitempty"`
	Primary   bool       `json:"primary,omitempty"`
	Restarts  int        `json:"restarts"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// UpstreamStatus represents the passive health of an upstream.
type UpstreamStatus struct {
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Down        bool       `json:"down"`
	Fails       int        `json:"fails"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
