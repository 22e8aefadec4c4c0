// Package proxy implements the HTTP adapter for the router: the single
// listening port, its middleware chain and the health endpoint.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/net/netutil"

	"github.com/bnema/spaceport/internal/adapters/dto"
	"github.com/bnema/spaceport/internal/adapters/in/http/middleware"
	"github.com/bnema/spaceport/internal/boundaries/in"
	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
	idleTimeout            = 120 * time.Second
)

// Config holds the listener configuration.
type Config struct {
	Listen         string
	HealthPath     string // empty disables the health endpoint
	MaxConnections int    // 0 means unlimited
	TrustedProxies middleware.TrustedProxies
	// ShutdownTimeout bounds the graceful drain of in-flight requests.
	ShutdownTimeout time.Duration
	// GlobalLimiter and ClientLimiter are optional request rate limiters.
	GlobalLimiter out.RateLimiter
	ClientLimiter out.RateLimiter
}

// Handler wraps the router service for HTTP.
// The proxying logic is in the usecase layer (RouterService implements http.Handler).
type Handler struct {
	router in.RouterService
	health in.HealthService
	config Config
	log    zerowrap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewHandler creates a new router HTTP handler. health may be nil.
func NewHandler(router in.RouterService, health in.HealthService, config Config, log zerowrap.Logger) *Handler {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Handler{
		router: router,
		health: health,
		config: config,
		log:    log,
	}
}

// ServeHTTP answers the health endpoint itself and hands everything else to
// the router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.health != nil && h.config.HealthPath != "" && r.URL.Path == h.config.HealthPath {
		middleware.SecurityHeaders(http.HandlerFunc(h.serveHealth)).ServeHTTP(w, r)
		return
	}
	h.router.ServeHTTP(w, r)
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	report := h.health.Report(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(toHealthResponse(report))
}

// Handler returns the full middleware chain around h.
func (h *Handler) Handler() http.Handler {
	return middleware.Chain(
		middleware.PanicRecovery(h.log),
		middleware.RequestLogger(h.log, h.router, h.config.TrustedProxies),
		middleware.RateLimit(h.config.GlobalLimiter, h.config.ClientLimiter, h.config.TrustedProxies, h.log),
	)(h)
}

// Bind opens the listening socket. Once it returns without error the router
// accepts connections; requests are served after Serve is called.
func (h *Handler) Bind(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.config.Listen, err)
	}
	if h.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, h.config.MaxConnections)
	}
	h.listener = ln

	h.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "http").
		Str("address", ln.Addr().String()).
		Int("max_connections", h.config.MaxConnections).
		Msg("router listening")
	return nil
}

// Addr returns the bound address, or nil before Bind.
func (h *Handler) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Serve serves requests until ctx is canceled, then drains in-flight
// requests and releases upstream connections. It binds first if Bind was
// not called.
func (h *Handler) Serve(ctx context.Context) error {
	if err := h.Bind(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	ln := h.listener
	h.mu.Unlock()

	server := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		h.router.Close()
		return err
	case <-ctx.Done():
	}

	h.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "http").
		Msg("router shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		h.log.Warn().Dur("timeout", h.config.ShutdownTimeout).Msg("in-flight requests did not drain, closing")
		err = server.Close()
	}
	h.router.Close()
	return err
}

func toHealthResponse(report domain.HealthReport) dto.HealthResponse {
	resp := dto.HealthResponse{
		Status:  report.Status,
		State:   string(report.State),
		Managed: report.Managed,
		Routes:  report.Routes,
	}
	for _, p := range report.Processes {
		resp.Processes = append(resp.Processes, dto.ProcessStatus{
			Name:      p.Name,
			PID:       p.PID,
			State:     string(p.State),
			Address:   p.Address,
			Primary:   p.Primary,
			Restarts:  p.Restarts,
			StartedAt: timePtr(p.StartedAt),
			ExitedAt:  timePtr(p.ExitedAt),
			ExitCode:  p.ExitCode,
			LastError: p.LastError,
		})
	}
	for _, u := range report.Upstreams {
		resp.Upstreams = append(resp.Upstreams, dto.UpstreamStatus{
			Name:        u.Name,
			Address:     u.Address,
			Down:        u.Down,
			Fails:       u.Fails,
			LastFailure: timePtr(u.LastFailure),
			LastError:   u.LastError,
		})
	}
	return resp
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
