package coordcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsAreIdentityUnique(t *testing.T) {
	require.NotEqual(t, UseDefault, static)
	require.True(t, isSentinel(UseDefault))
	require.True(t, isSentinel(static))
	require.False(t, isSentinel("goat"))
	require.False(t, isSentinel(nil))

	// A string that happens to equal a sentinel's name must never compare
	// equal to the sentinel itself: identity, not structural equality.
	require.NotEqual(t, any("USE_DEFAULT"), any(UseDefault))
}

func TestErrorKindsClassifyWithErrorsIs(t *testing.T) {
	require.ErrorIs(t, newArgumentError("bad"), ErrArgument)
	require.ErrorIs(t, newPhaseError("bad phase"), ErrPhase)
	require.ErrorIs(t, newPathError("/x"), ErrPath)
	require.ErrorIs(t, newStateError("off thread"), ErrState)

	var pathErr *PathError
	err := newPathError("/x/missing")
	require.ErrorAs(t, err, &pathErr)
	require.Equal(t, "/x/missing", pathErr.Path)
}
