package coordcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPendingQueueAtMostOneEntryPerPath(t *testing.T) {
	q := newPendingQueue()
	q.enqueue("/a", PendingStatic)
	q.enqueue("/a", PendingDirectory)

	require.Equal(t, 1, q.Len())
	snap := q.snapshot()
	require.Equal(t, PendingStatic, snap["/a"], "second enqueue of an already-pending path must not change its kind")
}

func TestPendingQueueClearEmptiesEverything(t *testing.T) {
	q := newPendingQueue()
	q.enqueue("/a", PendingStatic)
	q.enqueue("/b", PendingRuntime)
	q.clear()

	require.True(t, q.isEmpty())
	require.Equal(t, 0, q.Len())
}

func TestPendingQueueDeleteRemovesEntry(t *testing.T) {
	q := newPendingQueue()
	q.enqueue("/a", PendingStatic)
	q.delete("/a")

	require.True(t, q.isEmpty())
}
