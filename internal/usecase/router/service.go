// Package router implements the longest-prefix reverse proxy in front of the
// backend processes.
package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/spaceport/internal/adapters/out/telemetry"
	"github.com/bnema/spaceport/internal/domain"
)

const (
	proxiedByHeader = "X-Proxied-By"
	proxiedBy       = "spaceport"

	// statusClientClosedRequest is logged when the client went away before
	// the upstream answered.
	statusClientClosedRequest = 499

	idleConnTimeout = 90 * time.Second
)

// Service implements the RouterService interface.
type Service struct {
	table     *table
	upstreams []*upstreamHealth
	routes    []*route
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
}

// route binds a rule to its upstream and owns the upstream connection pool.
type route struct {
	rule      domain.RouteRule
	upstream  domain.Upstream
	health    *upstreamHealth
	transport *http.Transport
	proxy     *httputil.ReverseProxy
}

// NewService builds the route table and one connection pool per route.
func NewService(topology domain.Topology) (*Service, error) {
	s := &Service{tracer: otel.Tracer("spaceport")}

	healthByName := make(map[string]*upstreamHealth, len(topology.Upstreams))
	for _, u := range topology.Upstreams {
		h := newUpstreamHealth(u)
		healthByName[u.Name] = h
		s.upstreams = append(s.upstreams, h)
	}

	for _, rule := range topology.Routes {
		h, ok := healthByName[rule.Upstream]
		if !ok {
			return nil, fmt.Errorf("%w: route %q references %q", domain.ErrUpstreamNotFound, rule.Name, rule.Upstream)
		}
		s.routes = append(s.routes, s.newRoute(rule, h))
	}
	s.table = newTable(s.routes)

	return s, nil
}

// SetMetrics sets the telemetry metrics for the router.
// Must be called before serving requests.
func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

func (s *Service) newRoute(rule domain.RouteRule, h *upstreamHealth) *route {
	opts := rule.Options
	rt := &route{
		rule:     rule,
		upstream: h.upstream,
		health:   h,
	}

	rt.transport = &http.Transport{
		DialContext:         newDialer(opts.ConnectTimeout, opts.SendTimeout, opts.ReadTimeout),
		MaxIdleConns:        h.upstream.Keepalive,
		MaxIdleConnsPerHost: h.upstream.Keepalive,
		DisableKeepAlives:   h.upstream.Keepalive <= 0,
		IdleConnTimeout:     idleConnTimeout,
		// Responses pass through with the encoding the upstream chose.
		DisableCompression: true,
	}

	target := h.upstream.URL()
	rt.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rewriteRequest(rule, target, pr)
		},
		Transport: &retryTransport{
			base:   rt.transport,
			policy: rule.Retry,
			onAttempt: func(ctx context.Context, attempt int, resp *http.Response, err error) {
				s.observeAttempt(ctx, rt, attempt, resp, err)
			},
		},
		FlushInterval: opts.FlushInterval,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.handleError(w, r, err)
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Set(proxiedByHeader, proxiedBy)
			return nil
		},
	}
	if opts.BufferSize > 0 {
		rt.proxy.BufferPool = newBufferPool(opts.BufferSize)
	}

	return rt
}

// rewriteRequest points the outbound request at the upstream. The original
// Host is kept and the forwarding headers are set from the client connection.
func rewriteRequest(rule domain.RouteRule, target *url.URL, pr *httputil.ProxyRequest) {
	pr.SetURL(target)
	pr.Out.URL.Path = rule.RewritePath(pr.In.URL.Path)
	pr.Out.URL.RawPath = ""
	if pr.In.URL.RawPath != "" {
		pr.Out.URL.RawPath = rule.RewritePath(pr.In.URL.RawPath)
	}
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = pr.In.Host

	// SetXForwarded appends the client address to whatever chain is present
	// on the outbound request; ReverseProxy has already removed it.
	if prior, ok := pr.In.Header["X-Forwarded-For"]; ok {
		pr.Out.Header["X-Forwarded-For"] = prior
	}
	pr.SetXForwarded()
	if ip, _, err := net.SplitHostPort(pr.In.RemoteAddr); err == nil {
		pr.Out.Header.Set("X-Real-IP", ip)
	}

	otel.GetTextMapPropagator().Inject(pr.Out.Context(), propagation.HeaderCarrier(pr.Out.Header))
}

// ServeHTTP matches the request to a route and forwards it to the upstream.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := zerowrap.CtxWithFields(r.Context(), map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "ServeHTTP",
		zerowrap.FieldMethod:   r.Method,
		zerowrap.FieldPath:     r.URL.Path,
		zerowrap.FieldHost:     r.Host,
		zerowrap.FieldClientIP: r.RemoteAddr,
	})
	log := zerowrap.FromCtx(ctx)

	if location, ok := s.table.redirect(r.URL.Path); ok {
		if r.URL.RawQuery != "" {
			location += "?" + r.URL.RawQuery
		}
		log.Debug().Str("location", location).Msg("redirecting to route prefix")
		http.Redirect(w, r, location, http.StatusMovedPermanently)
		return
	}

	rt, ok := s.table.match(r.URL.Path)
	if !ok {
		log.Warn().Err(domain.ErrRouteNotFound).Msg("no route for path")
		http.NotFound(w, r)
		return
	}

	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		"route":    rt.rule.Name,
		"upstream": rt.upstream.Name,
	})
	ctx, span := s.tracer.Start(ctx, "proxy "+rt.rule.Name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.URLPath(r.URL.Path),
			semconv.ServerAddress(rt.upstream.Host),
			semconv.ServerPort(rt.upstream.Port),
			attribute.String("spaceport.route", rt.rule.Name),
		))
	defer span.End()

	if rt.rule.Options.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.rule.Options.MaxBodySize)
	}

	rec := &statusRecorder{ResponseWriter: w}
	start := time.Now()
	rt.proxy.ServeHTTP(rec, r.WithContext(ctx))
	duration := time.Since(start)

	status := rec.status
	if status == 0 {
		status = http.StatusOK
		if isUpgrade(r) {
			status = http.StatusSwitchingProtocols
		}
	}
	span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	s.recordRequest(ctx, rt, status, duration)

	log.Debug().
		Int(zerowrap.FieldStatus, status).
		Dur(zerowrap.FieldDuration, duration).
		Msg("request proxied")
}

// Match returns the route rule with the longest prefix matching path.
func (s *Service) Match(path string) (domain.RouteRule, bool) {
	rt, ok := s.table.match(path)
	if !ok {
		return domain.RouteRule{}, false
	}
	return rt.rule, true
}

// Routes returns the route rules in match order.
func (s *Service) Routes() []domain.RouteRule {
	rules := make([]domain.RouteRule, 0, len(s.table.routes))
	for _, rt := range s.table.routes {
		rules = append(rules, rt.rule)
	}
	return rules
}

// UpstreamHealth returns the passive health of every upstream in declaration order.
func (s *Service) UpstreamHealth() []domain.UpstreamHealth {
	health := make([]domain.UpstreamHealth, 0, len(s.upstreams))
	for _, h := range s.upstreams {
		health = append(health, h.snapshot())
	}
	return health
}

// Close drops the idle upstream connections of every route.
func (s *Service) Close() {
	for _, rt := range s.routes {
		rt.transport.CloseIdleConnections()
	}
}

func (s *Service) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := zerowrap.FromCtx(r.Context())

	status := http.StatusBadGateway
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		status = statusClientClosedRequest
	case isTimeout(err):
		status = http.StatusGatewayTimeout
	}

	if status == statusClientClosedRequest {
		log.Debug().Err(err).Msg("client closed request")
		w.WriteHeader(status)
		return
	}

	log.Error().Err(err).Int(zerowrap.FieldStatus, status).Msg("upstream request failed")
	http.Error(w, http.StatusText(status), status)
}

func (s *Service) observeAttempt(ctx context.Context, rt *route, attempt int, resp *http.Response, err error) {
	log := zerowrap.FromCtx(ctx)
	attrs := metric.WithAttributes(
		attribute.String("route", rt.rule.Name),
		attribute.String("upstream", rt.upstream.Name),
	)

	if s.metrics != nil {
		s.metrics.ProxyAttempts.Add(ctx, 1, attrs)
		if attempt > 1 {
			s.metrics.ProxyRetries.Add(ctx, 1, attrs)
		}
	}

	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			return
		}
		if s.metrics != nil {
			s.metrics.ProxyUpstreamErrors.Add(ctx, 1, attrs)
		}
		trace.SpanFromContext(ctx).AddEvent("upstream attempt failed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("error", err.Error()),
		))
		log.Debug().Err(err).Int("attempt", attempt).Msg("upstream attempt failed")
		if rt.health.fail(err.Error()) {
			log.Warn().Str("address", rt.upstream.Address()).Msg("upstream marked down")
		}
	case rt.rule.Retry.RetriesStatus(resp.StatusCode):
		if rt.health.fail(resp.Status) {
			log.Warn().Str("address", rt.upstream.Address()).Msg("upstream marked down")
		}
	default:
		rt.health.success()
	}
}

func (s *Service) recordRequest(ctx context.Context, rt *route, status int, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", rt.rule.Name),
		attribute.String("status_class", statusClass(status)),
	)
	s.metrics.ProxyRequests.Add(ctx, 1, attrs)
	s.metrics.ProxyDuration.Record(ctx, duration.Seconds(), attrs)
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// statusRecorder captures the status written by the proxy. Unwrap keeps
// flushing and hijacking reachable through http.ResponseController.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 && code >= http.StatusOK {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
