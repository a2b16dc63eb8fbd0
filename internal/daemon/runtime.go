package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
	"github.com/nerdrew/zk-recipes-go/internal/events"
	"github.com/nerdrew/zk-recipes-go/internal/metrics"
	"github.com/nerdrew/zk-recipes-go/internal/zkclient"
)

// ComponentKind describes whether a component is long-running or a job.
// This daemon only runs persistent components; no discrete background jobs.
type ComponentKind string

const (
	ComponentKindPersistent ComponentKind = "persistent"
)

// Criticality describes whether a component is fatal to the daemon.
type Criticality string

const (
	CriticalityFatal      Criticality = "fatal"
	CriticalityDegradable Criticality = "degradable"
)

// RestartPolicy determines whether a component is restarted on failure.
type RestartPolicy string

const (
	RestartNever     RestartPolicy = "never"
	RestartOnFailure RestartPolicy = "on_failure"
	RestartAlways    RestartPolicy = "always"
)

// ManagedComponent describes a long-running component.
type ManagedComponent interface {
	Name() string
	Kind() ComponentKind
	Criticality() Criticality
	RestartPolicy() RestartPolicy
	Dependencies() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() ComponentHealth
}

// ComponentDefinition declares how to build a component and its metadata.
type ComponentDefinition struct {
	Name          string
	Kind          ComponentKind
	Criticality   Criticality
	RestartPolicy RestartPolicy
	Dependencies  []string
	Build         func(ctx context.Context, deps ComponentContext) (any, error)
	// FatalChan returns a channel for runtime fatal errors (optional).
	FatalChan func(component any) <-chan error
}

// RestartConfig controls backoff for restartable components.
type RestartConfig struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// ComponentContext provides access to previously built components, passed
// to each definition's Build func in dependency order.
type ComponentContext struct {
	Bus              *events.EventBus
	ZK               *zkclient.Client
	Facade           *coordcache.CacheFacade
	MetricsCollector *metrics.Collector
}

// ComponentRegistry stores component definitions.
type ComponentRegistry struct {
	defs map[string]ComponentDefinition
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		defs: make(map[string]ComponentDefinition),
	}
}

// Register adds a definition.
func (r *ComponentRegistry) Register(def ComponentDefinition) {
	r.defs[def.Name] = def
}

// Definitions returns all registered definitions.
func (r *ComponentRegistry) Definitions() map[string]ComponentDefinition {
	return r.defs
}

// FilterByKind returns component names filtered by kind.
func (r *ComponentRegistry) FilterByKind(kind ComponentKind) []string {
	var out []string
	for name, def := range r.defs {
		if def.Kind == kind {
			out = append(out, name)
		}
	}
	return out
}

// TopologicalOrder returns component names ordered by dependencies.
func (r *ComponentRegistry) TopologicalOrder() ([]string, error) {
	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if temp[name] {
			return fmt.Errorf("circular dependency detected at %s", name)
		}
		def, ok := r.defs[name]
		if !ok {
			return fmt.Errorf("component %s not registered", name)
		}
		temp[name] = true
		for _, dep := range def.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		temp[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for name := range r.defs {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}
