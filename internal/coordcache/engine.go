package coordcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerdrew/zk-recipes-go/internal/metrics"
)

// WatchEngine is the finite state machine that keeps StaticEntry and
// Directory mirrors coherent with the coordination store: seeding on
// connect, reacting to watch deliveries, and draining PendingQueue. Every
// method that mutates cache state must run on the Client's single dispatch
// thread; inDispatch is the engine's proxy for that invariant, set for the
// duration of any closure the engine itself submits to or receives from
// the Client.
type WatchEngine struct {
	logger *slog.Logger

	client Client

	statics     map[string]*StaticEntry
	staticOrder []string

	directories     map[string]*Directory
	directoryOrder  []string
	directoriesByID map[uuid.UUID]*Directory

	staticSubs    map[string]Subscription
	directorySubs map[string]Subscription
	onConnectedSub Subscription
	onExceptionSub Subscription

	runtime  *RuntimeRegistry
	pending  *PendingQueue
	notifier Notifier

	warm          *warmLatch
	lastSessionID SessionID
	haveSession   bool

	inDispatch atomic.Bool
	started    atomic.Bool
}

func newWatchEngine(notifier Notifier, logger *slog.Logger, runtime *RuntimeRegistry) *WatchEngine {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchEngine{
		logger:          logger,
		statics:         make(map[string]*StaticEntry),
		directories:     make(map[string]*Directory),
		directoriesByID: make(map[uuid.UUID]*Directory),
		staticSubs:      make(map[string]Subscription),
		directorySubs:   make(map[string]Subscription),
		runtime:         runtime,
		pending:         newPendingQueue(),
		notifier:        notifier,
		warm:            newWarmLatch(),
	}
}

// addStatic registers a StaticEntry during the registration phase. Callers
// (the CacheFacade) are responsible for rejecting duplicates and enforcing
// the phase.
func (e *WatchEngine) addStatic(entry *StaticEntry) {
	e.statics[entry.path] = entry
	e.staticOrder = append(e.staticOrder, entry.path)
}

// addDirectory registers a Directory during the registration phase.
func (e *WatchEngine) addDirectory(dir *Directory) {
	e.directories[dir.path] = dir
	e.directoryOrder = append(e.directoryOrder, dir.path)
	e.directoriesByID[dir.id] = dir
}

// start installs every subscription the engine needs and must be called
// before the client's first connection attempt, so the seed pass and the
// first watch delivery cannot race. It is an error to call start against a
// client that is already connected or connecting.
func (e *WatchEngine) start(client Client) error {
	if e.started.Load() {
		return newPhaseError("engine already started")
	}
	if client.Connected() || client.Connecting() {
		return newPhaseError("start called against an already-connected or connecting client")
	}
	e.client = client

	for path := range e.statics {
		p := path
		e.staticSubs[p] = client.Register(p, func(WatchEvent) {
			e.dispatch(func() { e.runAndMaybeEnqueue(PendingStatic, p, func() bool { return e.updateStatic(p) }) })
		})
	}
	for path := range e.directories {
		p := path
		e.directorySubs[p] = client.Register(p, func(WatchEvent) {
			e.dispatch(func() { e.runAndMaybeEnqueue(PendingDirectory, p, func() bool { return e.updateDirectory(p) }) })
		})
	}

	e.onConnectedSub = client.OnConnected(func() {
		e.dispatch(e.onConnected)
	})
	e.onExceptionSub = client.OnException(func(err error) {
		e.logger.Error("coordination client reported an exception", "error", err)
	})

	e.started.Store(true)
	return nil
}

// dispatch marks the duration of fn as running on the dispatch thread. The
// Client contract guarantees it only ever invokes one callback at a time,
// so this never races with itself.
func (e *WatchEngine) dispatch(fn func()) {
	e.inDispatch.Store(true)
	defer e.inDispatch.Store(false)
	fn()
}

// onConnected implements the session-change branch of the engine's
// contract: reconnect-within-session drains the pending queue inline;
// session-new clears it and reseeds every static, directory, and
// currently-registered runtime path, arming the warm latch once the seed
// completes.
func (e *WatchEngine) onConnected() {
	current := e.client.SessionID()
	if e.haveSession && current == e.lastSessionID {
		e.processPending()
		return
	}

	if e.haveSession {
		metrics.SessionExpirationsTotal.Inc()
	}
	metrics.SessionConnectsTotal.Inc()
	metrics.SessionConnected.Set(1)

	e.pending.clear()

	for _, path := range e.staticOrder {
		if !e.updateStatic(path) {
			e.pending.enqueue(path, PendingStatic)
		}
	}
	for _, path := range e.directoryOrder {
		if !e.updateDirectory(path) {
			e.pending.enqueue(path, PendingDirectory)
		}
	}

	runtimePaths := make([]string, 0, e.runtime.count())
	for path := range e.runtime.watches {
		runtimePaths = append(runtimePaths, path)
	}
	for _, path := range runtimePaths {
		if !e.updateRuntime(path) {
			e.pending.enqueue(path, PendingRuntime)
		}
	}

	e.lastSessionID = current
	e.haveSession = true
	e.warm.release()

	e.scheduleDrain()
}

// runAndMaybeEnqueue invokes fn (an update_* pass) and, on transient
// failure, enqueues path for retry and schedules a drain.
func (e *WatchEngine) runAndMaybeEnqueue(kind PendingKind, path string, fn func() bool) {
	if fn() {
		if e.pending.delete(path) {
			metrics.PendingDrainedTotal.WithLabelValues(kind.String()).Inc()
		}
		return
	}
	e.pending.enqueue(path, kind)
	metrics.PendingEnqueuedTotal.WithLabelValues(kind.String()).Inc()
	e.scheduleDrain()
}

// scheduleDrain asks the client to run process_pending on the dispatch
// thread at its next opportunity.
func (e *WatchEngine) scheduleDrain() {
	e.client.Defer(func() {
		e.dispatch(e.processPending)
	})
}

// processPending drains every entry whose matching update_* pass now
// succeeds. Short-circuits if the queue is empty or the client is
// disconnected, matching the spec's "no exponential backoff" design: a
// failed entry simply survives until the next triggering event.
func (e *WatchEngine) processPending() {
	if e.pending.isEmpty() || !e.client.Connected() {
		return
	}
	for path, kind := range e.pending.snapshot() {
		var ok bool
		switch kind {
		case PendingStatic:
			ok = e.updateStatic(path)
		case PendingDirectory:
			ok = e.updateDirectory(path)
		case PendingRuntime:
			ok = e.updateRuntime(path)
		}
		if ok {
			e.pending.delete(path)
		}
	}
}

// updateStatic refreshes one StaticEntry mirror. It must run on the
// dispatch thread; returns false on a transient failure (caller
// enqueues), true on any other outcome including a successfully-handled
// deserializer error.
func (e *WatchEngine) updateStatic(path string) bool {
	if !e.inDispatch.Load() {
		e.logger.Error(newStateError("update_static invoked off the dispatch thread: "+path).Error())
		return false
	}
	entry, ok := e.statics[path]
	if !ok {
		return true
	}
	if !e.client.Connected() {
		return false
	}

	stat, err := e.statWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_static: stat failed", "path", path, "error", err)
		return false
	}

	oldValue, _ := entry.snapshot()

	if !stat.Exists {
		entry.setMissing()
		metrics.StaticUpdatesTotal.WithLabelValues(path).Inc()
		metrics.StaticUsingDefault.WithLabelValues(path).Set(1)
		e.notifier.Publish(ChannelStatic, StaticUpdatePayload{
			Path:        path,
			Value:       entry.defaultValue,
			OldValue:    oldValue,
			UsedDefault: true,
		})
		return true
	}

	raw, gstat, err := e.getWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_static: get failed", "path", path, "error", err)
		return false
	}

	var newValue any
	var derivedErr error
	var usedDefault bool
	switch {
	case entry.deserializer == nil:
		entry.setValue(raw, gstat)
		newValue = raw
	default:
		v, derr := entry.deserializer(raw, gstat)
		switch {
		case derr != nil:
			e.logger.Error("update_static: deserializer failed", "path", path, "error", derr)
			entry.setInvalid(gstat)
			newValue = entry.defaultValue
			derivedErr = derr
			usedDefault = true
		case v == UseDefault:
			entry.setInvalid(gstat)
			newValue = entry.defaultValue
			usedDefault = true
		default:
			entry.setValue(v, gstat)
			newValue = v
		}
	}

	metrics.StaticUpdatesTotal.WithLabelValues(path).Inc()
	defaultGauge := 0.0
	if usedDefault {
		defaultGauge = 1
	}
	metrics.StaticUsingDefault.WithLabelValues(path).Set(defaultGauge)
	metrics.StaticLatencySeconds.WithLabelValues(path).Observe(latencySeconds(gstat.Mtime))

	e.notifier.Publish(ChannelStatic, StaticUpdatePayload{
		Path:           path,
		Value:          newValue,
		OldValue:       oldValue,
		UsedDefault:    usedDefault,
		LatencySeconds: latencySeconds(gstat.Mtime),
		Version:        gstat.Version,
		DataLength:     gstat.DataLength,
		Err:            derivedErr,
	})
	return true
}

// updateDirectory refreshes one Directory mirror: child-set diff, runtime
// watch acquisition/release, and static shadowing.
func (e *WatchEngine) updateDirectory(path string) bool {
	if !e.inDispatch.Load() {
		e.logger.Error(newStateError("update_directory invoked off the dispatch thread: "+path).Error())
		return false
	}
	dir, ok := e.directories[path]
	if !ok {
		return true
	}
	if !e.client.Connected() {
		return false
	}

	stat, err := e.statWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_directory: stat failed", "path", path, "error", err)
		return false
	}

	if !stat.Exists {
		e.releaseAllChildren(dir)
		dir.clear()
		metrics.DirectoryUpdatesTotal.WithLabelValues(path).Inc()
		metrics.DirectoryChildCount.WithLabelValues(path).Set(0)
		e.notifier.Publish(ChannelDirectory, DirectoryUpdatePayload{Path: path, DirectoryPaths: []string{}})
		return true
	}

	children, cstat, err := e.childrenWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_directory: children failed", "path", path, "error", err)
		return false
	}

	incoming := make(map[string]struct{}, len(children))
	incomingList := make([]string, 0, len(children))
	for _, c := range children {
		mp := dir.pathMapper(c)
		incoming[mp] = struct{}{}
		incomingList = append(incomingList, mp)
	}

	var added, removed []string
	for mp := range incoming {
		if !dir.isWatched(mp) {
			added = append(added, mp)
		}
	}
	for mp := range dir.watched {
		if _, still := incoming[mp]; !still {
			removed = append(removed, mp)
		}
	}

	for _, mp := range added {
		if _, shadowed := e.statics[mp]; shadowed {
			dir.setStatic(mp)
			continue
		}
		e.runtime.acquire(dir.id, mp, func(p string) Subscription {
			metrics.RuntimeWatchInstallsTotal.Inc()
			return e.client.Register(p, func(WatchEvent) {
				e.dispatch(func() { e.runAndMaybeEnqueue(PendingRuntime, p, func() bool { return e.updateRuntime(p) }) })
			})
		})
		e.updateRuntime(mp)
	}
	for _, mp := range removed {
		if _, shadowed := e.statics[mp]; !shadowed {
			e.runtime.release(dir.id, mp)
			metrics.RuntimeWatchReleasesTotal.Inc()
		}
	}

	dir.replaceWatched(incoming)

	metrics.DirectoryUpdatesTotal.WithLabelValues(path).Inc()
	metrics.DirectoryChildCount.WithLabelValues(path).Set(float64(len(incomingList)))
	metrics.DirectoryLatencySeconds.WithLabelValues(path).Observe(latencySeconds(cstat.Mtime))

	e.notifier.Publish(ChannelDirectory, DirectoryUpdatePayload{
		Path:             path,
		DirectoryPaths:   incomingList,
		DirectoryVersion: cstat.ChildListVersion,
		LatencySeconds:   latencySeconds(cstat.Mtime),
		DataLength:       cstat.DataLength,
	})
	return true
}

// updateRuntime refreshes the mirrored value for one runtime path on
// behalf of every Directory that currently owns it. Runtime paths have no
// fetch-facing default; a missing node or a failed/UseDefault
// deserialization simply removes the path from each owner's values.
func (e *WatchEngine) updateRuntime(path string) bool {
	if !e.inDispatch.Load() {
		e.logger.Error(newStateError("update_runtime invoked off the dispatch thread: "+path).Error())
		return false
	}
	w, ok := e.runtime.watches[path]
	if !ok {
		return true
	}
	if !e.client.Connected() {
		return false
	}

	owners := e.ownersOf(w)

	stat, err := e.statWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_runtime: stat failed", "path", path, "error", err)
		return false
	}

	if !stat.Exists {
		for _, d := range owners {
			d.unsetValue(path)
		}
		e.notifier.Publish(ChannelRuntime, RuntimeUpdatePayload{Path: path, Present: false})
		return true
	}

	raw, gstat, err := e.getWithRetry(path, true)
	if err != nil {
		e.logger.Error("update_runtime: get failed", "path", path, "error", err)
		return false
	}

	for _, d := range owners {
		if d.deserializer == nil {
			d.setValue(path, raw)
			continue
		}
		v, derr := d.deserializer(raw)
		switch {
		case derr != nil:
			e.logger.Error("update_runtime: deserializer failed", "path", path, "dir", d.path, "error", derr)
			d.unsetValue(path)
		case v == UseDefault:
			d.unsetValue(path)
		default:
			d.setValue(path, v)
		}
	}

	e.notifier.Publish(ChannelRuntime, RuntimeUpdatePayload{Path: path, Present: true, DataLength: gstat.DataLength})
	return true
}

func (e *WatchEngine) ownersOf(w *RuntimeWatch) []*Directory {
	out := make([]*Directory, 0, len(w.owners))
	for id := range w.owners {
		if d, ok := e.directoriesByID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (e *WatchEngine) releaseAllChildren(dir *Directory) {
	for mp := range dir.watched {
		if _, shadowed := e.statics[mp]; !shadowed {
			e.runtime.release(dir.id, mp)
		}
	}
}

func (e *WatchEngine) statWithRetry(path string, watch bool) (Stat, error) {
	for {
		stat, err := e.client.Stat(context.Background(), path, watch)
		if err == nil || !IsTransient(err) {
			return stat, err
		}
	}
}

func (e *WatchEngine) getWithRetry(path string, watch bool) ([]byte, Stat, error) {
	for {
		raw, stat, err := e.client.Get(context.Background(), path, watch)
		if err == nil || !IsTransient(err) {
			return raw, stat, err
		}
	}
}

func (e *WatchEngine) childrenWithRetry(path string, watch bool) ([]string, Stat, error) {
	for {
		children, stat, err := e.client.Children(context.Background(), path, watch)
		if err == nil || !IsTransient(err) {
			return children, stat, err
		}
	}
}

// close unregisters every subscription, releases every runtime watch, and
// drops pending work.
func (e *WatchEngine) close() {
	for _, sub := range e.staticSubs {
		sub.Unregister()
	}
	for _, sub := range e.directorySubs {
		sub.Unregister()
	}
	if e.onConnectedSub != nil {
		e.onConnectedSub.Unregister()
	}
	if e.onExceptionSub != nil {
		e.onExceptionSub.Unregister()
	}
	e.runtime.releaseAll()
	e.pending.clear()
}

// prepareReopen resets the warm latch and session state before a fork
// child's client reconnects, so the child never mistakes the parent's
// session for its own.
func (e *WatchEngine) prepareReopen() {
	e.warm.reset()
	e.haveSession = false
	e.lastSessionID = 0
	e.pending.clear()
}

func latencySeconds(mtimeMillis int64) float64 {
	if mtimeMillis <= 0 {
		return 0
	}
	return time.Since(time.UnixMilli(mtimeMillis)).Seconds()
}

// warmLatch is a one-shot, resettable latch: released exactly once per
// successful seed, and reset by reopen so a fork child can re-wait.
type warmLatch struct {
	ch   chan struct{}
	done atomic.Bool
}

func newWarmLatch() *warmLatch {
	return &warmLatch{ch: make(chan struct{})}
}

func (w *warmLatch) release() {
	if w.done.CompareAndSwap(false, true) {
		close(w.ch)
	}
}

func (w *warmLatch) wait(timeout time.Duration) bool {
	select {
	case <-w.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (w *warmLatch) reset() {
	w.done.Store(false)
	w.ch = make(chan struct{})
}
