// Package metrics provides Prometheus metrics for the coordination cache daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "coordcache"
)

// Static path metrics track StaticEntry reads and updates.
var (
	// StaticUpdatesTotal is the total number of StaticEntry refreshes by path.
	StaticUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "static_updates_total",
		Help:      "Total number of static path cache refreshes",
	}, []string{"path"})

	// StaticUsingDefault tracks whether a static path is currently serving
	// its registered default value (1) or a parsed node value (0).
	StaticUsingDefault = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "static_using_default",
		Help:      "1 if the static path is currently serving its registered default value",
	}, []string{"path"})

	// StaticLatencySeconds is a histogram of the age of a static node's
	// mtime at the moment its update was processed.
	StaticLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "static_latency_seconds",
		Help:      "Age of a static node's mtime when its cached value was refreshed",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	}, []string{"path"})
)

// Directory metrics track Directory mirrors and their dynamically acquired
// per-child watches.
var (
	// DirectoryChildCount is the number of children currently present in a
	// directory mirror's snapshot.
	DirectoryChildCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "directory_child_count",
		Help:      "Number of children currently present in a directory mirror",
	}, []string{"path"})

	// DirectoryUpdatesTotal is the total number of directory mirror refreshes.
	DirectoryUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_updates_total",
		Help:      "Total number of directory mirror refreshes",
	}, []string{"path"})

	// DirectoryLatencySeconds is a histogram of the age of a directory
	// node's mtime at the moment its child list was refreshed.
	DirectoryLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_latency_seconds",
		Help:      "Age of a directory node's mtime when its child list was refreshed",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	}, []string{"path"})

	// RuntimeWatchesTotal is the number of dynamically-acquired per-child
	// watch subscriptions currently installed across all directories.
	RuntimeWatchesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runtime_watches_total",
		Help:      "Number of dynamically-acquired per-child watch subscriptions currently installed",
	})

	// RuntimeWatchInstallsTotal is the total number of per-child watch
	// subscriptions ever installed.
	RuntimeWatchInstallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runtime_watch_installs_total",
		Help:      "Total number of dynamically-acquired per-child watch subscriptions installed",
	})

	// RuntimeWatchReleasesTotal is the total number of per-child watch
	// subscriptions ever released.
	RuntimeWatchReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runtime_watch_releases_total",
		Help:      "Total number of dynamically-acquired per-child watch subscriptions released",
	})
)

// Pending queue metrics track retry state for failed stat/get/children
// calls that could not be serviced in-line.
var (
	// PendingQueueDepth is the number of paths currently awaiting retry.
	PendingQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_queue_depth",
		Help:      "Number of paths currently awaiting retry in the pending queue",
	})

	// PendingEnqueuedTotal is the total number of paths ever enqueued for retry.
	PendingEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_enqueued_total",
		Help:      "Total number of paths enqueued for retry",
	}, []string{"kind"})

	// PendingDrainedTotal is the total number of paths successfully
	// retried and removed from the pending queue.
	PendingDrainedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_drained_total",
		Help:      "Total number of paths successfully retried and removed from the pending queue",
	}, []string{"kind"})
)

// Session metrics track the underlying Client's connection lifecycle.
var (
	// SessionConnectsTotal is the total number of times the Client has
	// established or resumed a session.
	SessionConnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_connects_total",
		Help:      "Total number of times the client established or resumed a session",
	})

	// SessionExpirationsTotal is the total number of times the Client's
	// session was lost and required a full reseed.
	SessionExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expirations_total",
		Help:      "Total number of session expirations requiring a full reseed",
	})

	// SessionConnected reports whether the client currently holds a live
	// session (1) or not (0).
	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_connected",
		Help:      "1 if the client currently holds a live session",
	})

	// WarmCacheReady reports whether the facade has completed its initial
	// seed since the current session began (1) or is still warming (0).
	WarmCacheReady = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "warm_cache_ready",
		Help:      "1 once the cache has completed its initial seed for the current session",
	})
)

// EventBus metrics track the in-process pub/sub bus.
var (
	// EventBusDroppedEvents is the total number of events dropped due to a
	// full subscriber buffer, by event type.
	EventBusDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_bus_dropped_events_total",
		Help:      "Total number of events dropped due to a full subscriber buffer",
	}, []string{"event_type"})
)

// Daemon metrics track daemon health and uptime.
var (
	// DaemonInfo provides daemon version and build information.
	DaemonInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_info",
		Help:      "Daemon version and build information",
	}, []string{"version", "go_version"})

	// DaemonStartTime is the unix timestamp when the daemon started.
	DaemonStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_start_time_seconds",
		Help:      "Unix timestamp when the daemon started",
	})

	// ComponentStatus tracks the health status of daemon components.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_status",
		Help:      "Health status of daemon components (1=healthy, 0=unhealthy)",
	}, []string{"component"})
)
