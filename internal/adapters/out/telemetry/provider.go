// Package telemetry provides OpenTelemetry initialization for spaceport.
// It configures trace, metric, and log providers that export via OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	otellog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled         bool    `mapstructure:"enabled"`
	Endpoint        string  `mapstructure:"endpoint"`          // OTLP HTTP endpoint, e.g. "http://localhost:4318"
	AuthToken       string  `mapstructure:"auth_token"`        // Basic auth token (base64 encoded user:pass)
	Traces          bool    `mapstructure:"traces"`            // Enable trace export
	Metrics         bool    `mapstructure:"metrics"`           // Enable metric export
	Logs            bool    `mapstructure:"logs"`              // Export process lifecycle events as OTel logs
	TraceSampleRate float64 `mapstructure:"trace_sample_rate"` // 0.0-1.0
}

// Provider holds the initialized OTel providers. Fields stay nil for signals
// that are not exported.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LogProvider    *otellog.LoggerProvider

	shutdowns []func(context.Context) error
}

// endpoint holds the parsed OTLP endpoint shared by every exporter.
type endpoint struct {
	host     string
	basePath string
	insecure bool
	headers  map[string]string
}

func (e endpoint) path(signal string) string {
	if e.basePath == "" {
		return ""
	}
	return e.basePath + "/v1/" + signal
}

// NewProvider creates and registers OTel providers based on the given config.
// A disabled config yields an empty provider whose Shutdown is a no-op.
func NewProvider(ctx context.Context, cfg Config, serviceName, version string) (*Provider, error) {
	p := &Provider{}
	if !cfg.Enabled || cfg.Endpoint == "" {
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	ep, err := parseEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Traces {
		if err := p.setupTracing(ctx, ep, cfg.TraceSampleRate, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}
	if cfg.Metrics {
		if err := p.setupMetrics(ctx, ep, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}
	if cfg.Logs {
		if err := p.setupLogging(ctx, ep, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}

	return p, nil
}

// Shutdown flushes and stops every provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, p.shutdowns[i](ctx))
	}
	p.shutdowns = nil
	return errors.Join(errs...)
}

func parseEndpoint(cfg Config) (endpoint, error) {
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return endpoint{}, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return endpoint{}, fmt.Errorf("parse endpoint URL: missing host in %q", cfg.Endpoint)
	}

	headers := make(map[string]string)
	if cfg.AuthToken != "" {
		headers["Authorization"] = "Basic " + cfg.AuthToken
	}

	return endpoint{
		host:     parsed.Host,
		basePath: strings.TrimSuffix(parsed.Path, "/"),
		insecure: parsed.Scheme == "http",
		headers:  headers,
	}, nil
}

func (p *Provider) setupTracing(ctx context.Context, ep endpoint, sampleRate float64, res *resource.Resource) error {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(ep.host),
		otlptracehttp.WithHeaders(ep.headers),
	}
	if path := ep.path("traces"); path != "" {
		opts = append(opts, otlptracehttp.WithURLPath(path))
	}
	if ep.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(sampler(sampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	p.TracerProvider = tp
	p.shutdowns = append(p.shutdowns, tp.Shutdown)
	return nil
}

// sampler maps a rate to a sampler: 0 never samples, (0,1) samples by
// trace id ratio, >= 1 always samples. Child spans follow their parent.
func sampler(rate float64) trace.Sampler {
	switch {
	case rate <= 0:
		return trace.NeverSample()
	case rate < 1:
		return trace.ParentBased(trace.TraceIDRatioBased(rate))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

func (p *Provider) setupMetrics(ctx context.Context, ep endpoint, res *resource.Resource) error {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(ep.host),
		otlpmetrichttp.WithHeaders(ep.headers),
	}
	if path := ep.path("metrics"); path != "" {
		opts = append(opts, otlpmetrichttp.WithURLPath(path))
	}
	if ep.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create metric exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exp)),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	p.MeterProvider = mp
	p.shutdowns = append(p.shutdowns, mp.Shutdown)
	return nil
}

func (p *Provider) setupLogging(ctx context.Context, ep endpoint, res *resource.Resource) error {
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(ep.host),
		otlploghttp.WithHeaders(ep.headers),
	}
	if path := ep.path("logs"); path != "" {
		opts = append(opts, otlploghttp.WithURLPath(path))
	}
	if ep.insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}

	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create log exporter: %w", err)
	}

	lp := otellog.NewLoggerProvider(
		otellog.WithProcessor(otellog.NewBatchProcessor(exp)),
		otellog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	p.LogProvider = lp
	p.shutdowns = append(p.shutdowns, lp.Shutdown)
	return nil
}
