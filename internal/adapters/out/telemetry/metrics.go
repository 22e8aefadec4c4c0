package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds spaceport OTel metric instruments.
type Metrics struct {
	// Router
	ProxyRequests       metric.Int64Counter
	ProxyAttempts       metric.Int64Counter
	ProxyRetries        metric.Int64Counter
	ProxyUpstreamErrors metric.Int64Counter
	ProxyDuration       metric.Float64Histogram

	// Processes
	ProcessStarts   metric.Int64Counter
	ProcessRestarts metric.Int64Counter
	ProcessExits    metric.Int64Counter
	ProcessRunning  metric.Int64UpDownCounter

	// Events
	EventsProcessed metric.Int64Counter
	EventsDropped   metric.Int64Counter
}

// NewMetrics creates and registers every instrument. All fields are always
// initialized; OTel hands out noop instruments when no MeterProvider is set.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("spaceport")
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.ProxyRequests, "spaceport.proxy.requests", "Proxied requests by route and status class"},
		{&m.ProxyAttempts, "spaceport.proxy.attempts", "Upstream attempts, including retries"},
		{&m.ProxyRetries, "spaceport.proxy.retries", "Upstream attempts beyond the first one"},
		{&m.ProxyUpstreamErrors, "spaceport.proxy.upstream_errors", "Attempts that failed at the transport level"},
		{&m.ProcessStarts, "spaceport.process.starts", "Process spawns"},
		{&m.ProcessRestarts, "spaceport.process.restarts", "Process restarts, automatic and manual"},
		{&m.ProcessExits, "spaceport.process.exits", "Process exits by exit code"},
		{&m.EventsProcessed, "spaceport.events.processed", "Events handled successfully"},
		{&m.EventsDropped, "spaceport.events.dropped", "Events dropped because the bus was full"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.ProxyDuration, err = meter.Float64Histogram("spaceport.proxy.duration_seconds",
		metric.WithDescription("Proxied request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120)); err != nil {
		return nil, err
	}
	if m.ProcessRunning, err = meter.Int64UpDownCounter("spaceport.process.running",
		metric.WithDescription("Currently running managed processes")); err != nil {
		return nil, err
	}

	return m, nil
}
