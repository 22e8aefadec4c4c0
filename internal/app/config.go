package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/bnema/spaceport/internal/adapters/out/telemetry"
	"github.com/bnema/spaceport/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"server"`

	Router struct {
		Listen          string        `mapstructure:"listen"`
		HealthPath      string        `mapstructure:"health_path"`
		MaxConnections  int           `mapstructure:"max_connections"`
		TrustedProxies  []string      `mapstructure:"trusted_proxies"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		RateLimit       struct {
			Backend     string  `mapstructure:"backend"`
			GlobalRPS   float64 `mapstructure:"global_rps"`
			GlobalBurst int     `mapstructure:"global_burst"`
			RPS         float64 `mapstructure:"rps"`
			Burst       int     `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"router"`

	Preview struct {
		Enabled bool `mapstructure:"enabled"`
		Watch   struct {
			Enabled  bool          `mapstructure:"enabled"`
			Dir      string        `mapstructure:"dir"`
			Debounce time.Duration `mapstructure:"debounce"`
		} `mapstructure:"watch"`
	} `mapstructure:"preview"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
		ProcessLogs struct {
			Enabled    bool   `mapstructure:"enabled"`
			Dir        string `mapstructure:"dir"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
			Forward    bool   `mapstructure:"forward"`
		} `mapstructure:"process_logs"`
	} `mapstructure:"logging"`

	Events struct {
		BufferSize int `mapstructure:"buffer_size"`
	} `mapstructure:"events"`

	Telemetry telemetry.Config `mapstructure:"telemetry"`

	// Topology sections are kept raw so each entry can be decoded over the
	// default entry of the same name.
	Upstreams []map[string]any `mapstructure:"upstreams"`
	Routes    []map[string]any `mapstructure:"routes"`
	Processes []map[string]any `mapstructure:"processes"`
}

// initConfig loads and unmarshals the configuration.
func initConfig(configPath string) (*viper.Viper, Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return v, cfg, nil
}

// loadConfig loads configuration from file and sets defaults.
func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("server.data_dir", DefaultDataDir())
	v.SetDefault("router.listen", domain.DefaultListen)
	v.SetDefault("router.health_path", domain.DefaultHealthPath)
	v.SetDefault("router.max_connections", 0)
	v.SetDefault("router.trusted_proxies", []string{})
	v.SetDefault("router.shutdown_timeout", "10s")
	v.SetDefault("router.rate_limit.backend", "memory")
	v.SetDefault("router.rate_limit.global_rps", 0) // 0 disables
	v.SetDefault("router.rate_limit.global_burst", 0)
	v.SetDefault("router.rate_limit.rps", 0) // per client IP, 0 disables
	v.SetDefault("router.rate_limit.burst", 0)
	v.SetDefault("preview.enabled", true)
	v.SetDefault("preview.watch.enabled", false)
	v.SetDefault("preview.watch.dir", "") // defaults to the preview process dir
	v.SetDefault("preview.watch.debounce", "1s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.process_logs.enabled", true)
	v.SetDefault("logging.process_logs.dir", "") // defaults to {data_dir}/logs/processes
	v.SetDefault("logging.process_logs.max_size", 100)
	v.SetDefault("logging.process_logs.max_backups", 3)
	v.SetDefault("logging.process_logs.max_age", 28)
	v.SetDefault("logging.process_logs.forward", true)
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.traces", true)
	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.logs", false)
	v.SetDefault("telemetry.trace_sample_rate", 1.0)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SPACEPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

type upstreamEntry struct {
	Name        string        `mapstructure:"name"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Keepalive   int           `mapstructure:"keepalive"`
	MaxFails    int           `mapstructure:"max_fails"`
	FailTimeout time.Duration `mapstructure:"fail_timeout"`
}

type retryEntry struct {
	Attempts      int           `mapstructure:"attempts"`
	Budget        time.Duration `mapstructure:"budget"`
	On            []string      `mapstructure:"on"`
	Backoff       time.Duration `mapstructure:"backoff"`
	NonIdempotent bool          `mapstructure:"non_idempotent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
}

type routeEntry struct {
	Name           string        `mapstructure:"name"`
	Prefix         string        `mapstructure:"prefix"`
	StripPrefix    bool          `mapstructure:"strip_prefix"`
	Upstream       string        `mapstructure:"upstream"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	BufferSize     int           `mapstructure:"buffer_size"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
	Retry          retryEntry    `mapstructure:"retry"`
}

type restartEntry struct {
	Mode        string        `mapstructure:"mode"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	StableAfter time.Duration `mapstructure:"stable_after"`
}

type readinessEntry struct {
	Type     string        `mapstructure:"type"`
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// processEntry mirrors domain.ProcessSpec. Env is a list of KEY=VALUE
// strings: viper lowercases map keys, environment names keep their case.
type processEntry struct {
	Name        string         `mapstructure:"name"`
	Command     []string       `mapstructure:"command"`
	Dir         string         `mapstructure:"dir"`
	Env         []string       `mapstructure:"env"`
	EnvFile     string         `mapstructure:"env_file"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Primary     bool           `mapstructure:"primary"`
	Optional    bool           `mapstructure:"optional"`
	Restart     restartEntry   `mapstructure:"restart"`
	Readiness   readinessEntry `mapstructure:"readiness"`
	StopTimeout time.Duration  `mapstructure:"stop_timeout"`
	PortWait    time.Duration  `mapstructure:"port_wait"`
}

// Topology builds the validated routing and process layout. A section that
// declares no entries keeps the default layout; an entry whose name matches a
// default entry starts from that default.
func (c Config) Topology() (domain.Topology, error) {
	defaults := domain.DefaultTopology(c.Preview.Enabled)
	topology := domain.Topology{
		Listen:    c.Router.Listen,
		Upstreams: defaults.Upstreams,
		Routes:    defaults.Routes,
		Processes: defaults.Processes,
	}
	if topology.Listen == "" {
		topology.Listen = domain.DefaultListen
	}

	var errs []error
	if len(c.Upstreams) > 0 {
		upstreams, err := decodeUpstreams(c.Upstreams, defaults)
		errs = append(errs, err)
		topology.Upstreams = upstreams
	}
	if len(c.Routes) > 0 {
		routes, err := decodeRoutes(c.Routes, defaults)
		errs = append(errs, err)
		topology.Routes = routes
	}
	if len(c.Processes) > 0 {
		processes, err := decodeProcesses(c.Processes)
		errs = append(errs, err)
		topology.Processes = processes
	}
	if !c.Preview.Enabled {
		topology.Processes = withoutProcess(topology.Processes, domain.PreviewProcess)
	}
	if err := errors.Join(errs...); err != nil {
		return domain.Topology{}, err
	}

	if err := topology.Validate(); err != nil {
		return domain.Topology{}, err
	}
	return topology, nil
}

func decodeUpstreams(raw []map[string]any, defaults domain.Topology) ([]domain.Upstream, error) {
	var errs []error
	upstreams := make([]domain.Upstream, 0, len(raw))
	for i, entry := range raw {
		name := entryName(entry)
		base, ok := defaults.Upstream(name)
		if !ok {
			base = domain.DefaultUpstream(name, 0)
		}
		e := upstreamEntry{
			Name:        base.Name,
			Host:        base.Host,
			Port:        base.Port,
			Keepalive:   base.Keepalive,
			MaxFails:    base.MaxFails,
			FailTimeout: base.FailTimeout,
		}
		if err := decodeEntry(entry, &e); err != nil {
			errs = append(errs, fmt.Errorf("%w: upstreams[%d]: %w", domain.ErrInvalidConfig, i, err))
			continue
		}
		upstreams = append(upstreams, domain.Upstream{
			Name:        e.Name,
			Host:        e.Host,
			Port:        e.Port,
			Keepalive:   e.Keepalive,
			MaxFails:    e.MaxFails,
			FailTimeout: e.FailTimeout,
		})
	}
	return upstreams, errors.Join(errs...)
}

func decodeRoutes(raw []map[string]any, defaults domain.Topology) ([]domain.RouteRule, error) {
	var errs []error
	routes := make([]domain.RouteRule, 0, len(raw))
	for i, entry := range raw {
		name := entryName(entry)
		base := domain.RouteRule{
			Name:    name,
			Options: domain.DefaultProxyOptions(),
			Retry:   domain.RetryPolicy{Attempts: 1},
		}
		for _, r := range defaults.Routes {
			if r.Name == name {
				base = r
				break
			}
		}

		e := routeEntry{
			Name:           base.Name,
			Prefix:         base.Prefix,
			StripPrefix:    base.StripPrefix,
			Upstream:       base.Upstream,
			ConnectTimeout: base.Options.ConnectTimeout,
			SendTimeout:    base.Options.SendTimeout,
			ReadTimeout:    base.Options.ReadTimeout,
			BufferSize:     base.Options.BufferSize,
			FlushInterval:  base.Options.FlushInterval,
			MaxBodySize:    base.Options.MaxBodySize,
			Retry: retryEntry{
				Attempts:      base.Retry.Attempts,
				Budget:        base.Retry.Budget,
				On:            conditionStrings(base.Retry.On),
				Backoff:       base.Retry.Backoff,
				NonIdempotent: base.Retry.NonIdempotent,
				MaxBodyBytes:  base.Retry.MaxBodyBytes,
			},
		}
		if err := decodeEntry(entry, &e); err != nil {
			errs = append(errs, fmt.Errorf("%w: routes[%d]: %w", domain.ErrInvalidConfig, i, err))
			continue
		}

		// An empty "on" list stays nil so it matches an unset one.
		var conditions []domain.RetryCondition
		for _, s := range e.Retry.On {
			c, err := domain.ParseRetryCondition(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: route %q: %w", domain.ErrInvalidConfig, e.Name, err))
				continue
			}
			conditions = append(conditions, c)
		}

		routes = append(routes, domain.RouteRule{
			Name:        e.Name,
			Prefix:      e.Prefix,
			StripPrefix: e.StripPrefix,
			Upstream:    e.Upstream,
			Options: domain.ProxyOptions{
				ConnectTimeout: e.ConnectTimeout,
				SendTimeout:    e.SendTimeout,
				ReadTimeout:    e.ReadTimeout,
				BufferSize:     e.BufferSize,
				FlushInterval:  e.FlushInterval,
				MaxBodySize:    e.MaxBodySize,
			},
			Retry: domain.RetryPolicy{
				Attempts:      e.Retry.Attempts,
				Budget:        e.Retry.Budget,
				On:            conditions,
				Backoff:       e.Retry.Backoff,
				NonIdempotent: e.Retry.NonIdempotent,
				MaxBodyBytes:  e.Retry.MaxBodyBytes,
			},
		})
	}
	return routes, errors.Join(errs...)
}

func decodeProcesses(raw []map[string]any) ([]domain.ProcessSpec, error) {
	defaults := domain.DefaultTopology(true)

	var errs []error
	processes := make([]domain.ProcessSpec, 0, len(raw))
	for i, entry := range raw {
		name := entryName(entry)
		base, ok := defaults.Process(name)
		if !ok {
			base = domain.ProcessSpec{
				Name:    name,
				Host:    "127.0.0.1",
				Restart: domain.RestartPolicy{Mode: domain.RestartNever},
				Readiness: domain.Readiness{
					Type:     domain.ReadinessTCP,
					Interval: 200 * time.Millisecond,
					Timeout:  60 * time.Second,
				},
				StopTimeout: 10 * time.Second,
				PortWait:    5 * time.Second,
			}
		}

		e := processEntry{
			Name:     base.Name,
			Command:  base.Command,
			Dir:      base.Dir,
			Env:      envList(base.Env),
			EnvFile:  base.EnvFile,
			Host:     base.Host,
			Port:     base.Port,
			Primary:  base.Primary,
			Optional: base.Optional,
			Restart: restartEntry{
				Mode:        string(base.Restart.Mode),
				MaxRetries:  base.Restart.MaxRetries,
				Backoff:     base.Restart.Backoff,
				MaxBackoff:  base.Restart.MaxBackoff,
				Cooldown:    base.Restart.Cooldown,
				StableAfter: base.Restart.StableAfter,
			},
			Readiness: readinessEntry{
				Type:     string(base.Readiness.Type),
				Path:     base.Readiness.Path,
				Interval: base.Readiness.Interval,
				Timeout:  base.Readiness.Timeout,
			},
			StopTimeout: base.StopTimeout,
			PortWait:    base.PortWait,
		}
		if err := decodeEntry(entry, &e); err != nil {
			errs = append(errs, fmt.Errorf("%w: processes[%d]: %w", domain.ErrInvalidConfig, i, err))
			continue
		}

		env, err := parseEnv(e.Env)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: process %q: %w", domain.ErrInvalidConfig, e.Name, err))
			continue
		}

		processes = append(processes, domain.ProcessSpec{
			Name:     e.Name,
			Command:  e.Command,
			Dir:      e.Dir,
			Env:      env,
			EnvFile:  e.EnvFile,
			Host:     e.Host,
			Port:     e.Port,
			Primary:  e.Primary,
			Optional: e.Optional,
			Restart: domain.RestartPolicy{
				Mode:        domain.RestartMode(e.Restart.Mode),
				MaxRetries:  e.Restart.MaxRetries,
				Backoff:     e.Restart.Backoff,
				MaxBackoff:  e.Restart.MaxBackoff,
				Cooldown:    e.Restart.Cooldown,
				StableAfter: e.Restart.StableAfter,
			},
			Readiness: domain.Readiness{
				Type:     domain.ReadinessType(e.Readiness.Type),
				Path:     e.Readiness.Path,
				Interval: e.Readiness.Interval,
				Timeout:  e.Readiness.Timeout,
			},
			StopTimeout: e.StopTimeout,
			PortWait:    e.PortWait,
		})
	}
	return processes, errors.Join(errs...)
}

// decodeEntry overlays a raw table onto result. Unknown keys are rejected.
func decodeEntry(entry map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(entry)
}

func entryName(entry map[string]any) string {
	name, _ := entry["name"].(string)
	return name
}

func conditionStrings(conditions []domain.RetryCondition) []string {
	out := make([]string, len(conditions))
	for i, c := range conditions {
		out[i] = string(c)
	}
	return out
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func parseEnv(list []string) (map[string]string, error) {
	if len(list) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(list))
	for _, kv := range list {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("env entry %q is not KEY=VALUE", kv)
		}
		env[key] = value
	}
	return env, nil
}

func withoutProcess(specs []domain.ProcessSpec, name string) []domain.ProcessSpec {
	out := specs[:0:0]
	for _, spec := range specs {
		if spec.Name != name {
			out = append(out, spec)
		}
	}
	return out
}
