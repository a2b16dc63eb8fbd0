package coordcache

import (
	"context"

	"github.com/nerdrew/zk-recipes-go/internal/metrics"
)

// MetricsProviderAdapter implements metrics.MetricsProvider for a
// CacheFacade, sampling its coarse-grained gauges on each collection tick.
// Per-path counters (static/directory update totals, latencies) are set
// in-line by the engine as the corresponding events occur.
type MetricsProviderAdapter struct {
	facade *CacheFacade
}

// NewMetricsProvider wraps facade for registration with metrics.Collector.
func NewMetricsProvider(facade *CacheFacade) *MetricsProviderAdapter {
	return &MetricsProviderAdapter{facade: facade}
}

// CollectMetrics implements metrics.MetricsProvider.
func (p *MetricsProviderAdapter) CollectMetrics(ctx context.Context) error {
	metrics.PendingQueueDepth.Set(float64(p.facade.PendingCount()))
	metrics.RuntimeWatchesTotal.Set(float64(p.facade.RuntimeWatchCount()))

	ready := 0.0
	if p.facade.Phase() == PhaseRunning {
		ready = 1.0
	}
	metrics.WarmCacheReady.Set(ready)

	return nil
}
