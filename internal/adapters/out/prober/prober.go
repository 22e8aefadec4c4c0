// Package prober provides TCP and HTTP readiness probing for managed processes.
package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/spaceport/internal/domain"
)

// DefaultTimeout is the default timeout of a single probe.
const DefaultTimeout = 2 * time.Second

// Prober implements the ReadinessProber interface.
type Prober struct {
	client  *http.Client
	dialer  *net.Dialer
	timeout time.Duration
}

// Option configures the Prober.
type Option func(*Prober)

// WithTimeout sets the timeout of a single probe.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// New creates a new prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.dialer = &net.Dialer{Timeout: p.timeout}
	if p.client == nil {
		p.client = &http.Client{
			Timeout: p.timeout,
			Transport: &http.Transport{
				DialContext:       p.dialer.DialContext,
				DisableKeepAlives: true,
			},
			// Don't follow redirects - we want to see the actual response
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return p
}

// Probe performs one readiness check of spec.
func (p *Prober) Probe(ctx context.Context, spec domain.ProcessSpec) error {
	switch spec.Readiness.Type {
	case domain.ReadinessTCP:
		return p.probeTCP(ctx, spec.Address())
	case domain.ReadinessHTTP:
		return p.probeHTTP(ctx, spec.Address(), spec.Readiness.Path)
	case domain.ReadinessNone, "":
		return nil
	default:
		return fmt.Errorf("unknown readiness type %q", spec.Readiness.Type)
	}
}

// PortInUse reports whether something accepts connections on addr.
func (p *Prober) PortInUse(ctx context.Context, addr string) bool {
	return p.probeTCP(ctx, addr) == nil
}

func (p *Prober) probeTCP(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn.Close()
}

func (p *Prober) probeHTTP(ctx context.Context, addr, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := "http://" + addr + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "spaceport-readiness/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}

// StatusError reports a probe answered with a server error.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("probe %s: status %d", e.URL, e.StatusCode)
}

// IsStatusError reports whether err is a StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
