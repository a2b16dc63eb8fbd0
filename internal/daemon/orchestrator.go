package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerdrew/zk-recipes-go/internal/config"
	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
	"github.com/nerdrew/zk-recipes-go/internal/events"
	"github.com/nerdrew/zk-recipes-go/internal/metrics"
	"github.com/nerdrew/zk-recipes-go/internal/zkclient"
)

// Orchestrator manages the initialization and wiring of all daemon components.
type Orchestrator struct {
	daemon           *Daemon
	bus              *events.EventBus
	zk               *zkclient.Client
	facade           *coordcache.CacheFacade
	metricsCollector *metrics.Collector
}

// NewOrchestrator creates a new orchestrator for the daemon.
func NewOrchestrator(d *Daemon) *Orchestrator {
	return &Orchestrator{
		daemon: d,
	}
}

// Initialize builds every component in dependency order via ComponentBuilder
// and wires the daemon's HTTP server to the resulting cache facade.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	cfg := config.Get()

	builder := NewComponentBuilder(cfg)
	bag, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build components; %w", err)
	}

	o.bus = bag.Bus
	o.zk = bag.ZK
	o.facade = bag.Facade
	o.metricsCollector = bag.MetricsCollector

	if o.facade == nil {
		return fmt.Errorf("coordination cache failed to initialize")
	}

	o.daemon.server.SetFetchFunc(o.handleFetch)
	o.daemon.server.SetFetchDirectoryFunc(o.handleFetchDirectory)
	o.daemon.server.SetMetricsHandler(metrics.Handler())

	slog.Info("orchestrator initialized",
		"registrations", len(cfg.Registrations),
		"coordinator_hosts", cfg.Coordinator.Hosts,
	)

	return nil
}

// Start starts all orchestrated components. The zkclient is dialed and the
// cache facade started during Initialize (which waits up to the connect
// timeout for the cache to warm and carries on if it has not), so Start
// only needs to bring up the metrics collector.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.metricsCollector != nil {
		if err := o.metricsCollector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics collector; %w", err)
		}
	}
	return nil
}

// Stop stops all orchestrated components in reverse order.
func (o *Orchestrator) Stop(ctx context.Context) error {
	slog.Info("stopping orchestrated components")

	if o.metricsCollector != nil {
		if err := o.metricsCollector.Stop(ctx); err != nil {
			slog.Warn("metrics collector stop error", "error", err)
		} else {
			slog.Debug("metrics collector stopped")
		}
	}

	if o.facade != nil {
		if err := o.facade.Close(); err != nil {
			slog.Warn("coordination cache close error", "error", err)
		} else {
			slog.Debug("coordination cache closed")
		}
	}

	if o.zk != nil {
		if err := o.zk.Close(); err != nil {
			slog.Warn("coordination store client close error", "error", err)
		} else {
			slog.Debug("coordination store client closed")
		}
	}

	if o.bus != nil {
		if err := o.bus.Close(); err != nil {
			slog.Warn("event bus close error", "error", err)
		} else {
			slog.Debug("event bus closed")
		}
	}

	slog.Info("all components stopped")
	return nil
}

// handleFetch serves the Server's FetchFunc, reading through the cache facade.
func (o *Orchestrator) handleFetch(ctx context.Context, path string, validOnly bool) (any, error) {
	if o.facade == nil {
		return nil, fmt.Errorf("coordination cache not initialized")
	}
	if !o.facade.IsStaticRegistered(path) {
		return nil, ErrPathNotRegistered
	}
	if validOnly {
		return o.facade.FetchValid(path)
	}
	return o.facade.Fetch(path)
}

// handleFetchDirectory serves the Server's FetchDirectoryFunc.
func (o *Orchestrator) handleFetchDirectory(ctx context.Context, path string) (map[string]any, error) {
	if o.facade == nil {
		return nil, fmt.Errorf("coordination cache not initialized")
	}
	values, err := o.facade.FetchDirectoryValues(path)
	if err != nil {
		return nil, ErrPathNotRegistered
	}
	return values, nil
}

// Bus returns the initialized event bus.
func (o *Orchestrator) Bus() *events.EventBus {
	return o.bus
}

// ZK returns the initialized coordination-store client.
func (o *Orchestrator) ZK() *zkclient.Client {
	return o.zk
}

// Facade returns the initialized cache facade.
func (o *Orchestrator) Facade() *coordcache.CacheFacade {
	return o.facade
}

// MetricsCollector returns the initialized metrics collector.
func (o *Orchestrator) MetricsCollector() *metrics.Collector {
	return o.metricsCollector
}

// ComponentStatuses returns the health status of all orchestrated components.
func (o *Orchestrator) ComponentStatuses() map[string]ComponentHealth {
	bag := &ComponentBag{
		Bus:              o.bus,
		ZK:               o.zk,
		Facade:           o.facade,
		MetricsCollector: o.metricsCollector,
	}
	collector := NewComponentHealthCollector(bag)
	return collector.CollectComponents()
}
