package coordcache

import (
	"sync"

	"github.com/google/uuid"
)

// Directory mirrors one registered directory path: the current child set
// and, for each mapped child path, either a deserialized value or the
// static sentinel meaning "look this up in the StaticEntry table instead".
//
// watched and values are mutated only by the engine's dispatch thread; the
// values map is snapshot-copied before being handed to a reader.
type Directory struct {
	// id keys this Directory's ownership in RuntimeWatch.owners. Using a
	// stable token rather than the pointer itself lets tests compare
	// ownership without relying on pointer-equality quirks.
	id uuid.UUID

	path         string
	pathMapper   PathMapper
	deserializer DirDeserializer

	mu      sync.RWMutex
	watched map[string]struct{}
	values  map[string]any // value, or the `static` sentinel
}

func newDirectory(path string, mapper PathMapper, deserializer DirDeserializer) *Directory {
	return &Directory{
		id:           uuid.New(),
		path:         path,
		pathMapper:   mapper,
		deserializer: deserializer,
		watched:      make(map[string]struct{}),
		values:       make(map[string]any),
	}
}

// isWatched reports whether mappedPath is currently a member of this
// directory's child set. Dispatch-thread only.
func (d *Directory) isWatched(mappedPath string) bool {
	_, ok := d.watched[mappedPath]
	return ok
}

// snapshotValues returns a copy of values safe to hand to a reader, with
// `static` sentinels resolved against the supplied StaticEntry table.
func (d *Directory) snapshotValues(resolveStatic func(path string) (any, bool)) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]any, len(d.values))
	for path, v := range d.values {
		if isSentinel(v) {
			if resolved, ok := resolveStatic(path); ok {
				out[path] = resolved
			}
			continue
		}
		out[path] = v
	}
	return out
}

// replaceWatched installs the new child membership set. Dispatch-thread
// only.
func (d *Directory) replaceWatched(incoming map[string]struct{}) {
	d.watched = incoming

	d.mu.Lock()
	for path := range d.values {
		if _, stillWatched := incoming[path]; !stillWatched {
			delete(d.values, path)
		}
	}
	d.mu.Unlock()
}

// clear empties both watched and values, used when the directory node
// itself disappears. Dispatch-thread only.
func (d *Directory) clear() {
	d.watched = make(map[string]struct{})
	d.mu.Lock()
	d.values = make(map[string]any)
	d.mu.Unlock()
}

// setStatic marks mappedPath's slot as resolved through the StaticEntry
// table. Dispatch-thread only.
func (d *Directory) setStatic(mappedPath string) {
	d.mu.Lock()
	d.values[mappedPath] = static
	d.mu.Unlock()
}

// setValue records a deserialized runtime value for mappedPath.
// Dispatch-thread only.
func (d *Directory) setValue(mappedPath string, v any) {
	d.mu.Lock()
	d.values[mappedPath] = v
	d.mu.Unlock()
}

// unsetValue removes mappedPath's slot entirely — used when deserialization
// fails, yields UseDefault, or the runtime path disappears. A missing slot,
// not a present-with-default slot, is the spec's contract.
func (d *Directory) unsetValue(mappedPath string) {
	d.mu.Lock()
	delete(d.values, mappedPath)
	d.mu.Unlock()
}
