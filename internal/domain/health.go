package domain

// HealthReport is the aggregated liveness view served by the router.
type HealthReport struct {
	Status    string           `json:"status"`
	State     SupervisorState  `json:"state,omitempty"`
	Managed   bool             `json:"managed"`
	Routes    int              `json:"routes"`
	Processes []ProcessStatus  `json:"processes,omitempty"`
	Upstreams []UpstreamHealth `json:"upstreams,omitempty"`
}

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusStarting = "starting"
	HealthStatusStopping = "stopping"
)

// Healthy reports whether the report should be answered with a success status.
func (r HealthReport) Healthy() bool {
	return r.Status == HealthStatusOK
}
