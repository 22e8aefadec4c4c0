package app

import (
	"fmt"

	"github.com/bnema/spaceport/internal/adapters/in/http/middleware"
	"github.com/bnema/spaceport/internal/boundaries/in"
	"github.com/bnema/spaceport/internal/domain"
	"github.com/bnema/spaceport/internal/usecase/router"
)

// Kernel provides in-process access to the resolved configuration for local
// CLI execution.
//
// It intentionally does not bind listeners, spawn processes or register
// signal handlers.
type Kernel struct {
	configFile string
	config     Config
	topology   domain.Topology
	router     *router.Service
}

// NewKernel loads and validates the configuration and builds the route table.
func NewKernel(configPath string) (*Kernel, error) {
	v, cfg, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	topology, err := cfg.Topology()
	if err != nil {
		return nil, err
	}
	if _, err := middleware.ParseTrustedProxies(cfg.Router.TrustedProxies); err != nil {
		return nil, fmt.Errorf("%w: router.trusted_proxies: %w", domain.ErrInvalidConfig, err)
	}

	routerSvc, err := router.NewService(topology)
	if err != nil {
		return nil, err
	}

	return &Kernel{
		configFile: v.ConfigFileUsed(),
		config:     cfg,
		topology:   topology,
		router:     routerSvc,
	}, nil
}

func (k *Kernel) Close() error {
	if k == nil || k.router == nil {
		return nil
	}
	k.router.Close()
	return nil
}

// ConfigFile is the file the configuration was read from, empty when only
// defaults and environment were used.
func (k *Kernel) ConfigFile() string { return k.configFile }

func (k *Kernel) Topology() domain.Topology { return k.topology }

func (k *Kernel) Router() in.RouterService { return k.router }

func (k *Kernel) HealthPath() string { return k.config.Router.HealthPath }

func (k *Kernel) PreviewEnabled() bool { return k.config.Preview.Enabled }
