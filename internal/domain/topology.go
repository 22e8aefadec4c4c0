package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Default names of the two-backend layout.
const (
	MainUpstream    = "main_backend"
	PreviewUpstream = "preview_backend"
	MainRoute       = "main"
	PreviewRoute    = "preview"
	MainProcess     = "main"
	PreviewProcess  = "preview"

	DefaultListen      = ":7860"
	DefaultMainPort    = 7862
	DefaultPreviewPort = 7861
	DefaultHealthPath  = "/_spaceport/healthz"
)

// Topology is the complete, validated routing and process layout.
type Topology struct {
	Listen    string
	Upstreams []Upstream
	Routes    []RouteRule
	Processes []ProcessSpec
}

// Upstream returns the upstream with the given name.
func (t Topology) Upstream(name string) (Upstream, bool) {
	for _, u := range t.Upstreams {
		if u.Name == name {
			return u, true
		}
	}
	return Upstream{}, false
}

// Process returns the process spec with the given name.
func (t Topology) Process(name string) (ProcessSpec, bool) {
	for _, p := range t.Processes {
		if p.Name == name {
			return p, true
		}
	}
	return ProcessSpec{}, false
}

// DefaultUpstream returns an upstream with the default pool and health settings.
func DefaultUpstream(name string, port int) Upstream {
	return Upstream{
		Name:        name,
		Host:        "127.0.0.1",
		Port:        port,
		Keepalive:   32,
		MaxFails:    1,
		FailTimeout: 10 * time.Second,
	}
}

// DefaultProxyOptions returns the forwarding options used when a route sets none.
func DefaultProxyOptions() ProxyOptions {
	return ProxyOptions{
		ConnectTimeout: 5 * time.Second,
		SendTimeout:    60 * time.Second,
		ReadTimeout:    24 * time.Hour,
		BufferSize:     32 << 10,
	}
}

// DefaultTopology returns the main + preview layout. When previewEnabled is
// false the preview route still exists but no preview process is managed.
func DefaultTopology(previewEnabled bool) Topology {
	t := Topology{
		Listen: DefaultListen,
		Upstreams: []Upstream{
			DefaultUpstream(MainUpstream, DefaultMainPort),
			DefaultUpstream(PreviewUpstream, DefaultPreviewPort),
		},
		Routes: []RouteRule{
			{
				Name:     MainRoute,
				Prefix:   "/",
				Upstream: MainUpstream,
				Options:  DefaultProxyOptions(),
				Retry:    RetryPolicy{Attempts: 1},
			},
			{
				Name:        PreviewRoute,
				Prefix:      "/preview/",
				StripPrefix: true,
				Upstream:    PreviewUpstream,
				Options:     DefaultProxyOptions(),
				Retry: RetryPolicy{
					Attempts:     3,
					Budget:       10 * time.Second,
					On:           []RetryCondition{RetryOnError, RetryOnTimeout, RetryOnHTTP5xx},
					MaxBodyBytes: 1 << 20,
				},
			},
		},
		Processes: []ProcessSpec{
			{
				Name:    MainProcess,
				Command: []string{"python", "app.py", "--server-port", strconv.Itoa(DefaultMainPort), "--server-name", "127.0.0.1"},
				Host:    "127.0.0.1",
				Port:    DefaultMainPort,
				Primary: true,
				Restart: RestartPolicy{Mode: RestartNever},
				Readiness: Readiness{
					Type:     ReadinessTCP,
					Interval: 200 * time.Millisecond,
					Timeout:  60 * time.Second,
				},
				StopTimeout: 10 * time.Second,
				PortWait:    5 * time.Second,
			},
		},
	}
	if previewEnabled {
		t.Processes = append(t.Processes, ProcessSpec{
			Name:     PreviewProcess,
			Command:  []string{"python", "app_preview.py", "--server-port", strconv.Itoa(DefaultPreviewPort), "--server-name", "127.0.0.1"},
			Host:     "127.0.0.1",
			Port:     DefaultPreviewPort,
			Optional: true,
			Restart: RestartPolicy{
				Mode:        RestartOnFailure,
				MaxRetries:  5,
				Backoff:     time.Second,
				MaxBackoff:  30 * time.Second,
				Cooldown:    10 * time.Second,
				StableAfter: 5 * time.Minute,
			},
			Readiness: Readiness{
				Type:     ReadinessTCP,
				Interval: 200 * time.Millisecond,
				Timeout:  60 * time.Second,
			},
			StopTimeout: 10 * time.Second,
			PortWait:    5 * time.Second,
		})
	}
	return t
}

// Validate checks cross references and port ownership. All problems are
// reported at once, each wrapping ErrInvalidConfig.
func (t Topology) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	upstreams := make(map[string]bool, len(t.Upstreams))
	for _, u := range t.Upstreams {
		switch {
		case u.Name == "":
			fail("upstream without a name")
		case upstreams[u.Name]:
			fail("duplicate upstream %q", u.Name)
		}
		upstreams[u.Name] = true
		if u.Port <= 0 || u.Port > 65535 {
			fail("upstream %q: invalid port %d", u.Name, u.Port)
		}
		if u.Keepalive < 0 {
			fail("upstream %q: keepalive must not be negative", u.Name)
		}
	}

	if len(t.Routes) == 0 {
		fail("no routes declared")
	}
	routes := make(map[string]bool, len(t.Routes))
	for _, r := range t.Routes {
		if r.Name == "" {
			fail("route without a name")
		} else if routes[r.Name] {
			fail("duplicate route %q", r.Name)
		}
		routes[r.Name] = true
		if !strings.HasPrefix(r.Prefix, "/") {
			fail("route %q: prefix %q must start with /", r.Name, r.Prefix)
		}
		if !upstreams[r.Upstream] {
			errs = append(errs, fmt.Errorf("%w: route %q: %w %q", ErrInvalidConfig, r.Name, ErrUpstreamNotFound, r.Upstream))
		}
		if r.Retry.Attempts < 0 {
			fail("route %q: retry attempts must not be negative", r.Name)
		}
		if r.Options.BufferSize < 0 {
			fail("route %q: buffer size must not be negative", r.Name)
		}
	}

	listenPort := 0
	if _, p, err := net.SplitHostPort(t.Listen); err == nil {
		listenPort, _ = strconv.Atoi(p)
	}

	ports := make(map[int]string, len(t.Processes))
	names := make(map[string]bool, len(t.Processes))
	primaries := 0
	for _, p := range t.Processes {
		if p.Name == "" {
			fail("process without a name")
		} else if names[p.Name] {
			fail("duplicate process %q", p.Name)
		}
		names[p.Name] = true
		if len(p.Command) == 0 {
			fail("process %q: empty command", p.Name)
		}
		if p.Primary {
			primaries++
		}
		if p.Port > 0 {
			if owner, taken := ports[p.Port]; taken {
				fail("processes %q and %q share port %d", owner, p.Name, p.Port)
			}
			ports[p.Port] = p.Name
			if p.Port == listenPort {
				fail("process %q: port %d collides with the listen address", p.Name, p.Port)
			}
		}
		switch p.Restart.Mode {
		case RestartNever, RestartOnFailure, RestartAlways, "":
		default:
			fail("process %q: unknown restart mode %q", p.Name, p.Restart.Mode)
		}
		switch p.Readiness.Type {
		case ReadinessTCP, ReadinessHTTP:
			if p.Port <= 0 {
				fail("process %q: %s readiness requires a port", p.Name, p.Readiness.Type)
			}
		case ReadinessNone, "":
		default:
			fail("process %q: unknown readiness type %q", p.Name, p.Readiness.Type)
		}
	}
	if primaries > 1 {
		fail("at most one primary process is allowed, got %d", primaries)
	}

	return errors.Join(errs...)
}
