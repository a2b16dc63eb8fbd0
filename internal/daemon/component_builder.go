package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerdrew/zk-recipes-go/internal/config"
	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
	"github.com/nerdrew/zk-recipes-go/internal/events"
	"github.com/nerdrew/zk-recipes-go/internal/metrics"
	"github.com/nerdrew/zk-recipes-go/internal/zkclient"
)

// ComponentBag holds references to every built component, for health
// reporting and orchestrator-level lifecycle management.
type ComponentBag struct {
	Bus              *events.EventBus
	ZK               *zkclient.Client
	Facade           *coordcache.CacheFacade
	MetricsCollector *metrics.Collector
}

// ComponentBuilder constructs daemon components in dependency order.
type ComponentBuilder struct {
	registry *ComponentRegistry
	cfg      *config.Config
	logger   *slog.Logger
}

// BuilderOption configures ComponentBuilder.
type BuilderOption func(*ComponentBuilder)

// WithBuilderLogger sets the logger for build operations.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *ComponentBuilder) {
		b.logger = l
	}
}

// NewComponentBuilder creates a builder with registered component definitions.
func NewComponentBuilder(cfg *config.Config, opts ...BuilderOption) *ComponentBuilder {
	b := &ComponentBuilder{
		registry: NewComponentRegistry(),
		cfg:      cfg,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.registerDefinitions()
	return b
}

// Registry returns the underlying ComponentRegistry for ordering queries.
func (b *ComponentBuilder) Registry() *ComponentRegistry {
	return b.registry
}

// Build constructs all components in topological order, returning a ComponentBag.
// Fatal components that fail cause Build to return an error.
// Degradable components that fail are logged and skipped.
func (b *ComponentBuilder) Build(ctx context.Context) (*ComponentBag, error) {
	order, err := b.registry.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to determine build order; %w", err)
	}

	bag := &ComponentBag{}
	compCtx := ComponentContext{}

	for _, name := range order {
		def := b.registry.defs[name]
		obj, err := def.Build(ctx, compCtx)
		if err != nil {
			if def.Criticality == CriticalityFatal {
				return nil, fmt.Errorf("failed to build component %s; %w", name, err)
			}
			b.logger.Warn("component build failed; continuing in degraded mode",
				"component", name,
				"error", err,
			)
			continue
		}
		if obj == nil {
			continue
		}

		b.assignComponent(name, obj, bag, &compCtx)
	}

	return bag, nil
}

// assignComponent assigns the built object to the appropriate bag and context fields.
func (b *ComponentBuilder) assignComponent(name string, obj any, bag *ComponentBag, ctx *ComponentContext) {
	switch c := obj.(type) {
	case *events.EventBus:
		bag.Bus = c
		ctx.Bus = c
	case *zkclient.Client:
		bag.ZK = c
		ctx.ZK = c
	case *coordcache.CacheFacade:
		bag.Facade = c
		ctx.Facade = c
	case *metrics.Collector:
		bag.MetricsCollector = c
		ctx.MetricsCollector = c
	default:
		b.logger.Warn("unknown component type returned; ignoring", "component", name)
	}
}

// registerDefinitions populates the component registry with definitions.
func (b *ComponentBuilder) registerDefinitions() {
	cfg := b.cfg

	b.registry.Register(ComponentDefinition{
		Name:          "bus",
		Kind:          ComponentKindPersistent,
		Criticality:   CriticalityFatal,
		RestartPolicy: RestartNever,
		Dependencies:  nil,
		Build: func(ctx context.Context, deps ComponentContext) (any, error) {
			bus := events.NewBus(events.WithBufferSize(cfg.Daemon.EventBus.BufferSize))
			config.SetEventBus(bus)
			return bus, nil
		},
	})

	b.registry.Register(ComponentDefinition{
		Name:          "zkclient",
		Kind:          ComponentKindPersistent,
		Criticality:   CriticalityFatal,
		RestartPolicy: RestartOnFailure,
		Dependencies:  nil,
		Build: func(ctx context.Context, deps ComponentContext) (any, error) {
			sessionTimeout := time.Duration(cfg.Coordinator.SessionTimeoutMs) * time.Millisecond
			client, err := zkclient.Dial(cfg.Coordinator.Hosts, sessionTimeout,
				zkclient.WithLogger(slog.Default().With("component", "zkclient")),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to dial coordination store %q; %w", cfg.Coordinator.Hosts, err)
			}
			slog.Info("coordination store client connected", "hosts", cfg.Coordinator.Hosts)
			return client, nil
		},
	})

	b.registry.Register(ComponentDefinition{
		Name:          "coordcache",
		Kind:          ComponentKindPersistent,
		Criticality:   CriticalityFatal,
		RestartPolicy: RestartNever,
		Dependencies:  []string{"zkclient", "bus"},
		Build: func(ctx context.Context, deps ComponentContext) (any, error) {
			if deps.ZK == nil {
				return nil, fmt.Errorf("coordcache requires a connected zkclient")
			}

			facadeOpts := []coordcache.Option{
				coordcache.WithLogger(slog.Default().With("component", "coordcache")),
			}
			if deps.Bus != nil {
				facadeOpts = append(facadeOpts, coordcache.WithNotifier(events.NewCoordCacheNotifier(deps.Bus)))
			}

			facade := coordcache.New(facadeOpts...)
			for _, reg := range cfg.Registrations {
				switch reg.Kind {
				case "static":
					if err := facade.RegisterStatic(reg.Path, reg.Default, nil); err != nil {
						return nil, fmt.Errorf("failed to register static path %q; %w", reg.Path, err)
					}
				case "directory":
					if err := facade.RegisterDirectory(reg.Path, func(child string) string {
						return reg.Path + "/" + child
					}, nil); err != nil {
						return nil, fmt.Errorf("failed to register directory path %q; %w", reg.Path, err)
					}
				default:
					return nil, fmt.Errorf("unknown registration kind %q for path %q", reg.Kind, reg.Path)
				}
			}

			if err := facade.Start(deps.ZK); err != nil {
				return nil, fmt.Errorf("failed to start coordination cache; %w", err)
			}

			connectTimeout := time.Duration(cfg.Coordinator.ConnectTimeoutMs) * time.Millisecond
			if !facade.WaitForWarmCache(connectTimeout) {
				slog.Warn("coordination cache did not warm within connect timeout; continuing in degraded mode",
					"timeout", connectTimeout,
				)
			}

			slog.Info("coordination cache started", "registrations", len(cfg.Registrations))
			return facade, nil
		},
	})

	b.registry.Register(ComponentDefinition{
		Name:          "metrics_collector",
		Kind:          ComponentKindPersistent,
		Criticality:   CriticalityDegradable,
		RestartPolicy: RestartOnFailure,
		Dependencies:  []string{"coordcache"},
		Build: func(ctx context.Context, deps ComponentContext) (any, error) {
			interval := time.Duration(cfg.Daemon.Metrics.CollectionInterval) * time.Second
			if interval <= 0 {
				interval = 15 * time.Second
			}
			collector := metrics.NewCollector(interval)
			if deps.Facade != nil {
				collector.Register("coordcache", coordcache.NewMetricsProvider(deps.Facade))
			}
			return collector, nil
		},
	})
}
