package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bnema/zerowrap"
	"golang.org/x/sync/errgroup"

	// Adapters - Input
	"github.com/bnema/spaceport/internal/adapters/in/fswatch"
	"github.com/bnema/spaceport/internal/adapters/in/http/middleware"
	"github.com/bnema/spaceport/internal/adapters/in/http/proxy"

	// Adapters - Output
	"github.com/bnema/spaceport/internal/adapters/out/eventbus"
	"github.com/bnema/spaceport/internal/adapters/out/logwriter"
	"github.com/bnema/spaceport/internal/adapters/out/osprocess"
	"github.com/bnema/spaceport/internal/adapters/out/prober"
	"github.com/bnema/spaceport/internal/adapters/out/ratelimit"
	"github.com/bnema/spaceport/internal/adapters/out/telemetry"

	// Domain
	"github.com/bnema/spaceport/internal/domain"

	// Use cases
	"github.com/bnema/spaceport/internal/usecase/health"
	"github.com/bnema/spaceport/internal/usecase/router"
	"github.com/bnema/spaceport/internal/usecase/supervisor"
)

// Mode selects which components run in-process.
type Mode string

const (
	// ModeServe runs the router and supervises every process.
	ModeServe Mode = "serve"
	// ModeRoute runs the router only; backends are managed elsewhere.
	ModeRoute Mode = "route"
	// ModeSupervise runs the supervisor only.
	ModeSupervise Mode = "supervise"
)

func (m Mode) routes() bool     { return m != ModeSupervise }
func (m Mode) supervises() bool { return m != ModeRoute }

// services holds every component wired for one run.
type services struct {
	log        zerowrap.Logger
	telemetry  *telemetry.Provider
	eventBus   *eventbus.InMemory
	logWriter  *logwriter.LogWriter
	router     *router.Service
	handler    *proxy.Handler
	supervisor *supervisor.Service
	health     *health.Service
	watcher    *fswatch.Watcher

	// bound is closed once the supervisor bound the router listener.
	bound chan struct{}
}

// Run starts spaceport in the given mode and blocks until it stops. The
// returned code is the one the program should exit with: the primary
// process' exit code when its exit stopped the supervisor, 1 after a failed
// startup and 0 after a signal-driven shutdown.
func Run(ctx context.Context, configPath string, mode Mode, version string) (int, error) {
	_, cfg, err := initConfig(configPath)
	if err != nil {
		return 1, err
	}
	topology, err := cfg.Topology()
	if err != nil {
		return 1, err
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return 1, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx = zerowrap.WithCtx(ctx, log)
	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str("mode", string(mode)).
		Str("version", version).
		Str("listen", topology.Listen).
		Int("routes", len(topology.Routes)).
		Int("processes", len(topology.Processes)).
		Msg("starting spaceport")

	svc, err := createServices(ctx, cfg, topology, mode, version, log)
	if err != nil {
		return 1, err
	}
	defer svc.close(context.WithoutCancel(ctx))

	return svc.run(ctx)
}

// createServices wires the adapters and use cases needed by mode.
func createServices(ctx context.Context, cfg Config, topology domain.Topology, mode Mode, version string, log zerowrap.Logger) (*services, error) {
	svc := &services{log: log, bound: make(chan struct{})}

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, "spaceport", version)
	if err != nil {
		return nil, log.WrapErr(err, "failed to initialize telemetry")
	}
	svc.telemetry = provider

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		svc.close(ctx)
		return nil, log.WrapErr(err, "failed to create metrics")
	}

	svc.eventBus = eventbus.NewInMemory(cfg.Events.BufferSize, log)
	svc.eventBus.SetMetrics(metrics)
	if err := svc.eventBus.Subscribe(eventbus.NewJournal(log)); err != nil {
		svc.close(ctx)
		return nil, log.WrapErr(err, "failed to subscribe event journal")
	}
	if err := svc.eventBus.Start(); err != nil {
		svc.close(ctx)
		return nil, log.WrapErr(err, "failed to start event bus")
	}

	if mode.routes() {
		svc.router, err = router.NewService(topology)
		if err != nil {
			svc.close(ctx)
			return nil, err
		}
		svc.router.SetMetrics(metrics)
	}

	if mode.supervises() {
		svc.logWriter, err = createLogWriter(cfg, log)
		if err != nil {
			svc.close(ctx)
			return nil, err
		}

		var supervisorConfig supervisor.Config
		if mode.routes() {
			supervisorConfig.StartRouter = func(ctx context.Context) error {
				if err := svc.handler.Bind(ctx); err != nil {
					return err
				}
				close(svc.bound)
				return nil
			}
		}
		svc.supervisor = supervisor.NewService(
			topology.Processes,
			osprocess.NewRunner(),
			prober.New(),
			svc.logWriter,
			svc.eventBus,
			supervisorConfig,
		)
		svc.supervisor.SetMetrics(metrics)

		if _, ok := topology.Process(domain.PreviewProcess); ok && cfg.Preview.Watch.Enabled {
			svc.watcher = createWatcher(cfg, topology, svc.supervisor, svc.eventBus, log)
		}
	}

	if mode.routes() {
		if svc.supervisor != nil {
			svc.health = health.NewService(svc.router, svc.supervisor)
		} else {
			svc.health = health.NewService(svc.router, nil)
		}
		rl := cfg.Router.RateLimit
		globalLimiter, err := ratelimit.NewStore(rl.Backend, rl.GlobalRPS, rl.GlobalBurst, log)
		if err != nil {
			svc.close(ctx)
			return nil, fmt.Errorf("%w: router.rate_limit: %w", domain.ErrInvalidConfig, err)
		}
		clientLimiter, err := ratelimit.NewStore(rl.Backend, rl.RPS, rl.Burst, log)
		if err != nil {
			svc.close(ctx)
			return nil, fmt.Errorf("%w: router.rate_limit: %w", domain.ErrInvalidConfig, err)
		}
		trusted, err := middleware.ParseTrustedProxies(cfg.Router.TrustedProxies)
		if err != nil {
			svc.close(ctx)
			return nil, fmt.Errorf("%w: router.trusted_proxies: %w", domain.ErrInvalidConfig, err)
		}

		svc.handler = proxy.NewHandler(svc.router, svc.health, proxy.Config{
			Listen:          topology.Listen,
			HealthPath:      cfg.Router.HealthPath,
			MaxConnections:  cfg.Router.MaxConnections,
			TrustedProxies:  trusted,
			ShutdownTimeout: cfg.Router.ShutdownTimeout,
			GlobalLimiter:   globalLimiter,
			ClientLimiter:   clientLimiter,
		}, log)
	}

	return svc, nil
}

// run starts the components and waits for a signal, a failed startup, the
// supervisor stopping or the router failing; then shuts everything down.
func (s *services) run(ctx context.Context) (int, error) {
	log := s.log

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	if s.supervisor != nil {
		// Children keep running when the controlling terminal goes away.
		signal.Ignore(syscall.SIGHUP)
	}

	background, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	startCtx, cancelStart := context.WithCancel(ctx)
	defer cancelStart()

	var g errgroup.Group
	routerDone := make(chan error, 1)
	if s.handler != nil {
		g.Go(func() error {
			if s.supervisor != nil {
				// The supervisor binds the listener as its first startup step.
				select {
				case <-s.bound:
				case <-background.Done():
					return nil
				}
			}
			err := s.handler.Serve(background)
			routerDone <- err
			return err
		})
	}
	if s.watcher != nil {
		g.Go(func() error {
			if err := s.watcher.Run(background); err != nil {
				log.Warn().Err(err).Msg("preview watcher stopped")
			}
			return nil
		})
	}

	var (
		started <-chan error
		stopped <-chan struct{}
	)
	if s.supervisor != nil {
		ch := make(chan error, 1)
		g.Go(func() error {
			ch <- s.supervisor.Start(startCtx)
			return nil
		})
		started = ch
		stopped = s.supervisor.Done()
	}

	var runErr error
	code := 0
loop:
	for {
		select {
		case sig := <-sigs:
			log.Info().
				Str(zerowrap.FieldLayer, "app").
				Str("signal", sig.String()).
				Msg("received shutdown signal")
			break loop
		case <-ctx.Done():
			log.Info().Str(zerowrap.FieldLayer, "app").Msg("context cancelled, shutting down")
			break loop
		case err := <-started:
			started = nil
			if err != nil {
				if !errors.Is(err, domain.ErrShuttingDown) {
					runErr = fmt.Errorf("startup failed: %w", err)
				}
				break loop
			}
			log.Info().Str(zerowrap.FieldLayer, "app").Msg("spaceport ready")
		case <-stopped:
			if started != nil {
				// A failed startup shuts the supervisor down before Start
				// returns its error.
				cancelStart()
				err := <-started
				started = nil
				if err != nil && !errors.Is(err, domain.ErrShuttingDown) && !errors.Is(err, context.Canceled) {
					runErr = fmt.Errorf("startup failed: %w", err)
				}
			}
			log.Info().Str(zerowrap.FieldLayer, "app").Msg("supervisor stopped")
			break loop
		case err := <-routerDone:
			if err != nil {
				runErr = fmt.Errorf("router stopped: %w", err)
				code = 1
			}
			break loop
		}
	}

	cancelStart()
	stopBackground()
	if s.supervisor != nil {
		if err := s.supervisor.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("supervisor shutdown was not clean")
		}
		if c := s.supervisor.ExitCode(); c != 0 {
			code = c
		}
	}
	if err := g.Wait(); err != nil && runErr == nil {
		log.Warn().Err(err).Msg("router shutdown error")
	}

	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Int("exit_code", code).
		Msg("spaceport stopped")
	return code, runErr
}

// close releases the components in reverse creation order.
func (s *services) close(ctx context.Context) {
	if s.logWriter != nil {
		if err := s.logWriter.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close process log writer")
		}
	}
	if s.eventBus != nil {
		if err := s.eventBus.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("failed to stop event bus")
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to shut down telemetry")
		}
	}
}

// initLogger initializes the zerowrap logger.
func initLogger(cfg Config) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
			Enabled:    true,
			Path:       resolveLogFilePath(cfg),
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		})
		if err != nil {
			return zerowrap.Default(), nil, fmt.Errorf("failed to create logger with file: %w", err)
		}
		return log, cleanup, nil
	}

	return zerowrap.New(logConfig), nil, nil
}

// resolveLogFilePath returns the configured log file path or a default.
func resolveLogFilePath(cfg Config) string {
	if cfg.Logging.File.Path != "" {
		return cfg.Logging.File.Path
	}
	return filepath.Join(resolveDataDir(cfg.Server.DataDir), "logs", "spaceport.log")
}

func resolveDataDir(dataDir string) string {
	if dataDir == "" {
		return DefaultDataDir()
	}
	return dataDir
}

// createLogWriter creates the per-process log sink. With process logs
// disabled output is still forwarded to the structured log when configured.
func createLogWriter(cfg Config, log zerowrap.Logger) (*logwriter.LogWriter, error) {
	pl := cfg.Logging.ProcessLogs

	var logDir string
	if pl.Enabled {
		logDir = pl.Dir
		if logDir == "" {
			logDir = filepath.Join(resolveDataDir(cfg.Server.DataDir), "logs", "processes")
		}
	}

	writer, err := logwriter.New(logwriter.Config{
		Dir:        logDir,
		MaxSize:    pl.MaxSize,
		MaxBackups: pl.MaxBackups,
		MaxAge:     pl.MaxAge,
		Forward:    pl.Forward,
	}, log)
	if err != nil {
		return nil, log.WrapErr(err, "failed to create process log writer")
	}

	if logDir != "" {
		log.Info().Str("dir", logDir).Msg("process log collection enabled")
	} else {
		log.Debug().Msg("process log files disabled")
	}
	return writer, nil
}

// createWatcher watches the preview sources and restarts the preview process
// on change.
func createWatcher(cfg Config, topology domain.Topology, sup *supervisor.Service, events *eventbus.InMemory, log zerowrap.Logger) *fswatch.Watcher {
	dir := cfg.Preview.Watch.Dir
	if dir == "" {
		if spec, ok := topology.Process(domain.PreviewProcess); ok && spec.Dir != "" {
			dir = spec.Dir
		} else {
			dir = "."
		}
	}

	log.Info().Str("dir", dir).Dur("debounce", cfg.Preview.Watch.Debounce).Msg("preview watcher enabled")
	return fswatch.New(fswatch.Config{
		Dir:      dir,
		Process:  domain.PreviewProcess,
		Debounce: cfg.Preview.Watch.Debounce,
	}, sup, events)
}
