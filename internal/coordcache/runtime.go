package coordcache

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RuntimeWatch is the watch-subscription state for one currently-watched
// mapped path that has no StaticEntry. It exists iff owners is non-empty;
// owners reaching zero releases the subscription and removes the entry.
type RuntimeWatch struct {
	path         string
	owners       map[uuid.UUID]struct{}
	subscription Subscription
}

// RuntimeRegistry is the dynamic set of paths watched on behalf of
// directories, reference-counted by Directory identity. Acquire and
// release are only ever called from the engine's dispatch thread, so the
// map itself needs no locking of its own. When installRate is set, acquire
// waits on it before each new install, and that wait blocks the dispatch
// thread until a token is available.
type RuntimeRegistry struct {
	watches map[string]*RuntimeWatch

	// installRate paces per-child watch installation when a directory's
	// child set grows by many entries in a single update_directory pass,
	// bounding request-rate against the coordination store. This is
	// installation pacing, not the retry backoff the spec explicitly
	// excludes from PendingQueue draining.
	installRate *rate.Limiter
}

func newRuntimeRegistry(installRate *rate.Limiter) *RuntimeRegistry {
	return &RuntimeRegistry{
		watches:     make(map[string]*RuntimeWatch),
		installRate: installRate,
	}
}

// has reports whether path currently has an installed RuntimeWatch.
// Reader introspection (IsRuntimeWatched) consults this directly; it is
// the authoritative existence signal per spec §5.
func (r *RuntimeRegistry) has(path string) bool {
	_, ok := r.watches[path]
	return ok
}

// count returns the number of currently installed runtime subscriptions,
// used to check the quantified invariant that this equals
// |∪ d.watched \ StaticPaths| at every quiescent point.
func (r *RuntimeRegistry) count() int {
	return len(r.watches)
}

// acquire registers ownerID's interest in path, installing a new
// subscription via install if this is the path's first owner. install must
// not be called more than once per path while any owner remains; that
// invariant is enforced here, not by the caller.
func (r *RuntimeRegistry) acquire(ownerID uuid.UUID, path string, install func(path string) Subscription) {
	w, ok := r.watches[path]
	if ok {
		w.owners[ownerID] = struct{}{}
		return
	}

	if r.installRate != nil {
		_ = r.installRate.Wait(context.Background())
	}

	w = &RuntimeWatch{
		path:         path,
		owners:       map[uuid.UUID]struct{}{ownerID: {}},
		subscription: install(path),
	}
	r.watches[path] = w
}

// release drops ownerID's interest in path. When the last owner is
// removed, the subscription is unregistered exactly once and the entry is
// deleted.
func (r *RuntimeRegistry) release(ownerID uuid.UUID, path string) {
	w, ok := r.watches[path]
	if !ok {
		return
	}

	delete(w.owners, ownerID)
	if len(w.owners) == 0 {
		w.subscription.Unregister()
		delete(r.watches, path)
	}
}

// releaseAll tears down every remaining subscription, used by close.
func (r *RuntimeRegistry) releaseAll() {
	for path, w := range r.watches {
		w.subscription.Unregister()
		delete(r.watches, path)
	}
}
