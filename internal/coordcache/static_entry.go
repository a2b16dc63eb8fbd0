package coordcache

import "sync"

// StaticEntry mirrors one statically-registered path. Its (value, valid,
// stat) triple is published atomically under mu so concurrent readers never
// observe a torn update; it is mutated only by the engine's dispatch
// thread.
type StaticEntry struct {
	path         string
	defaultValue any
	deserializer Deserializer

	mu    sync.RWMutex
	value any
	valid bool
	stat  Stat
}

func newStaticEntry(path string, defaultValue any, deserializer Deserializer) *StaticEntry {
	return &StaticEntry{
		path:         path,
		defaultValue: defaultValue,
		deserializer: deserializer,
		value:        defaultValue,
		valid:        false,
	}
}

// snapshot returns the current (value, valid) pair under the read lock.
func (e *StaticEntry) snapshot() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value, e.valid
}

// setMissing marks the entry as reverted to its default because the node
// does not currently exist.
func (e *StaticEntry) setMissing() {
	e.mu.Lock()
	e.value = e.defaultValue
	e.valid = false
	e.stat = Stat{}
	e.mu.Unlock()
}

// setValue records a successfully deserialized value.
func (e *StaticEntry) setValue(v any, stat Stat) {
	e.mu.Lock()
	e.value = v
	e.valid = true
	e.stat = stat
	e.mu.Unlock()
}

// setInvalid records that the node exists but deserialization produced
// UseDefault or failed; value reverts to default but stat is kept for
// latency accounting.
func (e *StaticEntry) setInvalid(stat Stat) {
	e.mu.Lock()
	e.value = e.defaultValue
	e.valid = false
	e.stat = stat
	e.mu.Unlock()
}
