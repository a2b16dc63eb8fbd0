package coordcache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Phase is one of the three lifecycle stages a CacheFacade passes through.
type Phase int

const (
	PhaseRegistering Phase = iota
	PhaseRunning
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseRegistering:
		return "registering"
	case PhaseRunning:
		return "running"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CacheFacade is the reader-facing entry point: registration during the
// Registering phase, Start transitions to Running and freezes the static
// and directory tables, Close transitions to Closed.
type CacheFacade struct {
	mu sync.Mutex

	phase      Phase
	engine     *WatchEngine
	runtime    *RuntimeRegistry
	client     Client
	ownsClient bool
}

// facadeConfig accumulates Option values before a CacheFacade is built.
type facadeConfig struct {
	logger      *slog.Logger
	notifier    Notifier
	installRate *rate.Limiter
}

// Option configures a CacheFacade at construction time, following the
// functional-options pattern used throughout this repository.
type Option func(*facadeConfig)

// WithLogger sets the *slog.Logger the engine uses for its error and debug
// output. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *facadeConfig) { c.logger = logger }
}

// WithNotifier sets the Notifier the engine publishes update events to.
// Defaults to a no-op sink.
func WithNotifier(n Notifier) Option {
	return func(c *facadeConfig) { c.notifier = n }
}

// WithInstallRateLimit paces per-child RuntimeWatch installation so a
// directory whose child set grows by many entries in one update_directory
// pass does not burst the coordination store with subscribe requests. This
// is unset (unlimited) by default.
func WithInstallRateLimit(r rate.Limit, burst int) Option {
	return func(c *facadeConfig) { c.installRate = rate.NewLimiter(r, burst) }
}

// New builds a CacheFacade in the Registering phase, ready for
// RegisterStatic/RegisterDirectory calls followed by Start(client).
func New(opts ...Option) *CacheFacade {
	cfg := &facadeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	runtime := newRuntimeRegistry(cfg.installRate)
	engine := newWatchEngine(cfg.notifier, cfg.logger, runtime)

	return &CacheFacade{
		phase:   PhaseRegistering,
		engine:  engine,
		runtime: runtime,
	}
}

// Dial builds a Client for a given coordination-store host string. Adapters
// such as internal/zkclient implement this to let Open build its own
// client.
type Dial func(host string) (Client, error)

// Open implements the cache-owning construction mode: it builds its own
// client via dial, invokes register to populate the static and directory
// tables, starts the engine, and waits up to connectTimeout for the warm
// latch. host and register must be supplied together; any other
// combination is an ArgumentError.
func Open(host string, connectTimeout time.Duration, dial Dial, register func(*CacheFacade) error, opts ...Option) (*CacheFacade, error) {
	if host == "" {
		return nil, newArgumentError("Open requires a non-empty host")
	}
	if dial == nil {
		return nil, newArgumentError("Open requires a dial function")
	}
	if register == nil {
		return nil, newArgumentError("Open requires a registration function")
	}

	f := New(opts...)
	if err := register(f); err != nil {
		return nil, err
	}

	client, err := dial(host)
	if err != nil {
		return nil, fmt.Errorf("coordcache: failed to dial %s; %w", host, err)
	}

	if err := f.Start(client); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.ownsClient = true
	f.mu.Unlock()

	if !f.WaitForWarmCache(connectTimeout) {
		return f, fmt.Errorf("coordcache: cache did not warm within %s", connectTimeout)
	}
	return f, nil
}

// RegisterStatic declares a statically-mirrored path. default_value is used
// whenever the node is absent, the deserializer fails, or it returns
// UseDefault. deserializer may be nil, in which case the raw node bytes
// are the cache value.
func (f *CacheFacade) RegisterStatic(path string, defaultValue any, deserializer Deserializer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseRegistering {
		return newPhaseError("register_static called outside the registering phase")
	}
	if path == "" {
		return newArgumentError("register_static requires a non-empty path")
	}
	if _, exists := f.engine.statics[path]; exists {
		return newPhaseError("duplicate static registration: " + path)
	}
	if _, exists := f.engine.directories[path]; exists {
		return newPhaseError("path already registered as a directory: " + path)
	}

	f.engine.addStatic(newStaticEntry(path, defaultValue, deserializer))
	return nil
}

// RegisterDirectory declares a directory mirror. mapper maps each child
// name to the value path watched on its behalf; deserializer is used for
// children not shadowed by a StaticEntry and may be nil, in which case raw
// bytes are the runtime value.
func (f *CacheFacade) RegisterDirectory(path string, mapper PathMapper, deserializer DirDeserializer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseRegistering {
		return newPhaseError("register_directory called outside the registering phase")
	}
	if path == "" {
		return newArgumentError("register_directory requires a non-empty path")
	}
	if mapper == nil {
		return newArgumentError("register_directory requires a path mapper")
	}
	if _, exists := f.engine.directories[path]; exists {
		return newPhaseError("duplicate directory registration: " + path)
	}
	if _, exists := f.engine.statics[path]; exists {
		return newPhaseError("path already registered as static: " + path)
	}

	f.engine.addDirectory(newDirectory(path, mapper, deserializer))
	return nil
}

// Start attaches client, installs every watch subscription, and
// transitions the cache to the Running phase. The engine's own
// precondition checks (already started, client already connected or
// connecting) run before any state is mutated, so a failed Start leaves
// the facade in the Registering phase.
func (f *CacheFacade) Start(client Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseRegistering {
		return newPhaseError("start called outside the registering phase")
	}
	if err := f.engine.start(client); err != nil {
		return err
	}

	f.client = client
	f.phase = PhaseRunning
	return nil
}

// Fetch returns the StaticEntry's current value, or PathError if path was
// never registered.
func (f *CacheFacade) Fetch(path string) (any, error) {
	entry, ok := f.staticEntry(path)
	if !ok {
		return nil, newPathError(path)
	}
	v, _ := entry.snapshot()
	return v, nil
}

// FetchValid returns the StaticEntry's value only if it came from a
// successful deserialization of an existing node; otherwise it returns
// (nil, nil). A PathError is returned only for an unregistered path.
func (f *CacheFacade) FetchValid(path string) (any, error) {
	entry, ok := f.staticEntry(path)
	if !ok {
		return nil, newPathError(path)
	}
	v, valid := entry.snapshot()
	if !valid {
		return nil, nil
	}
	return v, nil
}

// FetchDirectoryValues returns a snapshot copy of one Directory's values,
// with Static slots resolved against the current StaticEntry table.
func (f *CacheFacade) FetchDirectoryValues(path string) (map[string]any, error) {
	f.mu.Lock()
	dir, ok := f.engine.directories[path]
	f.mu.Unlock()
	if !ok {
		return nil, newPathError(path)
	}

	return dir.snapshotValues(func(p string) (any, bool) {
		entry, ok := f.staticEntry(p)
		if !ok {
			return nil, false
		}
		v, _ := entry.snapshot()
		return v, true
	}), nil
}

// WaitForWarmCache blocks until every registered path has undergone at
// least one update pass against the current session, or timeout elapses.
func (f *CacheFacade) WaitForWarmCache(timeout time.Duration) bool {
	return f.engine.warm.wait(timeout)
}

// IsStaticRegistered reports whether path was declared via RegisterStatic.
func (f *CacheFacade) IsStaticRegistered(path string) bool {
	_, ok := f.staticEntry(path)
	return ok
}

// IsRuntimeWatched reports whether path currently has an installed
// RuntimeWatch; this is the authoritative existence signal, consulted
// directly against the RuntimeRegistry rather than any Directory's view.
func (f *CacheFacade) IsRuntimeWatched(path string) bool {
	return f.runtime.has(path)
}

// PendingCount reports the current PendingQueue size, useful for
// operational health reporting.
func (f *CacheFacade) PendingCount() int {
	return f.engine.pending.Len()
}

// RuntimeWatchCount reports the number of currently installed
// RuntimeWatch subscriptions, useful for operational health reporting.
func (f *CacheFacade) RuntimeWatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runtime.count()
}

// Phase returns the facade's current lifecycle phase.
func (f *CacheFacade) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Close unregisters every subscription, releases every RuntimeWatch, drops
// pending updates, and closes the client if it is owned by this facade.
func (f *CacheFacade) Close() error {
	f.mu.Lock()
	if f.phase == PhaseClosed {
		f.mu.Unlock()
		return nil
	}
	f.phase = PhaseClosed
	owns := f.ownsClient
	client := f.client
	f.mu.Unlock()

	f.engine.close()
	if owns && client != nil {
		return client.Close()
	}
	return nil
}

// Reopen resets the warm latch and session state and, for an owned
// client, reopens it. For a non-owned client, it only prepares the engine
// so the caller's subsequent client.Reopen triggers the fresh-session path
// in on_connected.
func (f *CacheFacade) Reopen() error {
	f.mu.Lock()
	if f.phase != PhaseRunning {
		f.mu.Unlock()
		return newPhaseError("reopen called outside the running phase")
	}
	owns := f.ownsClient
	client := f.client
	f.mu.Unlock()

	f.engine.prepareReopen()
	if owns && client != nil {
		return client.Reopen()
	}
	return nil
}

func (f *CacheFacade) staticEntry(path string) (*StaticEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.engine.statics[path]
	return e, ok
}
