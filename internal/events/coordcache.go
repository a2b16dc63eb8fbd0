package events

import (
	"context"

	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
	"github.com/nerdrew/zk-recipes-go/internal/metrics"
)

// CoordCacheNotifier adapts an EventBus to coordcache.Notifier, translating
// each channel's payload into a published Event and recording the
// corresponding Prometheus metrics.
type CoordCacheNotifier struct {
	bus Bus
}

// NewCoordCacheNotifier wraps bus as a coordcache.Notifier.
func NewCoordCacheNotifier(bus Bus) *CoordCacheNotifier {
	return &CoordCacheNotifier{bus: bus}
}

// Publish implements coordcache.Notifier.
func (n *CoordCacheNotifier) Publish(channel coordcache.Channel, payload any) {
	switch channel {
	case coordcache.ChannelStatic:
		p, ok := payload.(coordcache.StaticUpdatePayload)
		if !ok {
			return
		}
		metrics.RecordStaticUpdate(p.Path, p.UsedDefault, p.LatencySeconds)
		n.bus.Publish(context.Background(), NewStaticUpdated(p.Path, p.UsedDefault, p.Version, p.LatencySeconds))

	case coordcache.ChannelDirectory:
		p, ok := payload.(coordcache.DirectoryUpdatePayload)
		if !ok {
			return
		}
		childCount := len(p.DirectoryPaths)
		metrics.RecordDirectoryUpdate(p.Path, childCount, p.LatencySeconds)
		n.bus.Publish(context.Background(), NewDirectoryUpdated(p.Path, childCount, p.DirectoryVersion, p.LatencySeconds))

	case coordcache.ChannelRuntime:
		p, ok := payload.(coordcache.RuntimeUpdatePayload)
		if !ok {
			return
		}
		n.bus.Publish(context.Background(), NewRuntimeUpdated(p.Path, p.Present))
	}
}
