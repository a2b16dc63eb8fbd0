package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsProvider is an interface for components that provide metrics.
type MetricsProvider interface {
	// CollectMetrics collects current metrics from the component.
	CollectMetrics(ctx context.Context) error
}

// Collector manages metric collection from various components.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	running   bool
}

// NewCollector creates a new metrics collector.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Register adds a metrics provider to the collector.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Unregister removes a metrics provider from the collector.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.providers, name)
}

// Start begins periodic metric collection.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	// Set daemon start time
	DaemonStartTime.Set(float64(time.Now().Unix()))

	// Set daemon info
	DaemonInfo.WithLabelValues("1.0.0", runtime.Version()).Set(1)

	// Initial collection
	c.collect(ctx)

	// Start periodic collection
	go c.run(ctx)

	return nil
}

// Stop halts periodic metric collection.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	close(c.stopCh)
	c.running = false
	return nil
}

// run is the main collection loop.
func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect gathers metrics from all registered providers.
func (c *Collector) collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			ComponentStatus.WithLabelValues(name).Set(0)
		} else {
			ComponentStatus.WithLabelValues(name).Set(1)
		}
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a handler for a specific registry.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordStaticUpdate records a StaticEntry refresh.
func RecordStaticUpdate(path string, usingDefault bool, latencySeconds float64) {
	StaticUpdatesTotal.WithLabelValues(path).Inc()
	if usingDefault {
		StaticUsingDefault.WithLabelValues(path).Set(1)
	} else {
		StaticUsingDefault.WithLabelValues(path).Set(0)
	}
	StaticLatencySeconds.WithLabelValues(path).Observe(latencySeconds)
}

// RecordDirectoryUpdate records a directory mirror refresh.
func RecordDirectoryUpdate(path string, childCount int, latencySeconds float64) {
	DirectoryUpdatesTotal.WithLabelValues(path).Inc()
	DirectoryChildCount.WithLabelValues(path).Set(float64(childCount))
	DirectoryLatencySeconds.WithLabelValues(path).Observe(latencySeconds)
}

// RecordRuntimeWatchInstalled records the acquisition of a per-child watch.
func RecordRuntimeWatchInstalled() {
	RuntimeWatchInstallsTotal.Inc()
	RuntimeWatchesTotal.Inc()
}

// RecordRuntimeWatchReleased records the release of a per-child watch.
func RecordRuntimeWatchReleased() {
	RuntimeWatchReleasesTotal.Inc()
	RuntimeWatchesTotal.Dec()
}

// RecordPendingEnqueued records a path entering the pending retry queue.
func RecordPendingEnqueued(kind string, depth int) {
	PendingEnqueuedTotal.WithLabelValues(kind).Inc()
	PendingQueueDepth.Set(float64(depth))
}

// RecordPendingDrained records a path leaving the pending retry queue.
func RecordPendingDrained(kind string, depth int) {
	PendingDrainedTotal.WithLabelValues(kind).Inc()
	PendingQueueDepth.Set(float64(depth))
}

// RecordSessionConnected records the client establishing or resuming a session.
func RecordSessionConnected() {
	SessionConnectsTotal.Inc()
	SessionConnected.Set(1)
}

// RecordSessionExpired records the client's session being lost.
func RecordSessionExpired() {
	SessionExpirationsTotal.Inc()
	SessionConnected.Set(0)
	WarmCacheReady.Set(0)
}

// RecordWarmCacheReady records the cache completing its initial seed.
func RecordWarmCacheReady() {
	WarmCacheReady.Set(1)
}
