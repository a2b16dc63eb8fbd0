package coordcache

import "context"

// Deserializer turns raw node bytes plus their Stat into a cache value. It
// must be pure and side-effect free; it may return UseDefault to force the
// entry back to its registered default, or an error if the bytes could not
// be parsed.
type Deserializer func(data []byte, stat Stat) (any, error)

// DirDeserializer is a Deserializer for a directory's non-statically
// registered children; it does not see Stat because directory child values
// only ever report their own data, not child-list metadata.
type DirDeserializer func(data []byte) (any, error)

// PathMapper maps a directory child name to the mapped_path watched on its
// behalf.
type PathMapper func(childName string) string

// SessionID identifies a Client's current session at the coordination
// store. Comparing two SessionIDs for equality is the engine's sole means
// of distinguishing a reconnect within the same session from a fresh
// session after expiry.
type SessionID int64

// Stat mirrors the subset of ZooKeeper-style node metadata the engine
// depends on.
type Stat struct {
	Exists           bool
	Version          int32
	ChildListVersion int32
	Mtime            int64 // unix millis
	DataLength       int32
}

// WatchEventKind classifies a watch callback delivered by the Client.
type WatchEventKind int

const (
	EventNodeCreated WatchEventKind = iota
	EventNodeDeleted
	EventNodeDataChanged
	EventNodeChildrenChanged
	EventSession
)

// WatchEvent is delivered to a per-path handler registered via
// Client.Register.
type WatchEvent struct {
	Path        string
	IsNodeEvent bool
	EventName   string
	StateName   string
	Kind        WatchEventKind
}

// Subscription is an opaque handle to an installed watch or callback. It is
// released by calling Unregister exactly once.
type Subscription interface {
	Unregister()
}

// WatchHandler is invoked by the Client on its single dispatch thread
// whenever a watch fires.
type WatchHandler func(WatchEvent)

// ConnectedHandler is invoked on the dispatch thread whenever the Client
// establishes (or re-establishes) a connection.
type ConnectedHandler func()

// ExceptionHandler is invoked on the dispatch thread for client-level
// errors the engine did not itself raise.
type ExceptionHandler func(error)

// Client is the coordination-store capability the engine consumes. It is
// implemented by internal/zkclient for production use, and by a
// test-controlled fake for deterministic unit tests.
type Client interface {
	Connected() bool
	Connecting() bool
	SessionID() SessionID

	Stat(ctx context.Context, path string, watch bool) (Stat, error)
	Get(ctx context.Context, path string, watch bool) ([]byte, Stat, error)
	Children(ctx context.Context, path string, watch bool) ([]string, Stat, error)

	Register(path string, handler WatchHandler) Subscription
	OnConnected(handler ConnectedHandler) Subscription
	OnException(handler ExceptionHandler) Subscription

	// Defer schedules fn to run on the client's single dispatch thread.
	Defer(fn func())

	Reopen() error
	Close() error
}

// IsTransient reports whether err belongs to the client's transient
// (connection-lost class) error taxonomy, meaning the same call should be
// retried in-line rather than enqueued for later. Terminal (keeper/
// marshalling class) errors return false and are handled by the caller
// enqueueing a PendingUpdate.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if as, ok := err.(interface{ Transient() bool }); ok {
		return as.Transient()
	}
	return false
}
