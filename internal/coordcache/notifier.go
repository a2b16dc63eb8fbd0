package coordcache

// Channel names the three Notifier channels the engine publishes to.
type Channel string

const (
	ChannelStatic    Channel = "static"
	ChannelDirectory Channel = "directory"
	ChannelRuntime   Channel = "runtime"
)

// Notifier is the instrumentation sink the engine publishes to. It does not
// implement retry or buffering semantics itself; internal/events adapts an
// in-process pub/sub bus to this interface. Subscriber panics or errors are
// not the engine's concern: per spec, subscriber exceptions propagate to
// whatever scheduled the publication, not back into update logic.
type Notifier interface {
	Publish(channel Channel, payload any)
}

// StaticUpdatePayload is published on ChannelStatic after every
// update_static pass.
type StaticUpdatePayload struct {
	Path           string
	Value          any
	OldValue       any
	UsedDefault    bool
	LatencySeconds float64
	Version        int32
	DataLength     int32
	Err            error
}

// DirectoryUpdatePayload is published on ChannelDirectory after every
// update_directory pass.
type DirectoryUpdatePayload struct {
	Path            string
	DirectoryPaths  []string
	DirectoryVersion int32
	LatencySeconds  float64
	DataLength      int32
}

// RuntimeUpdatePayload is published on ChannelRuntime after every
// update_runtime pass. Runtime paths have no fetch-facing default; this
// payload exists purely for observability of the directory plumbing.
type RuntimeUpdatePayload struct {
	Path       string
	Present    bool
	DataLength int32
}

// noopNotifier discards every publication. Used when a CacheFacade is built
// without an explicit Notifier.
type noopNotifier struct{}

func (noopNotifier) Publish(Channel, any) {}
