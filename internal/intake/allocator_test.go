package intake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorFromPersistedState(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	a.Seed("intl-guidance", "Nigeria", 1000)

	id, err := a.Next("intl-guidance", "Nigeria")
	require.NoError(t, err)
	require.Equal(t, int64(1001), id)
	require.Equal(t, "1001-01", DocID(id))

	// Next does not advance on its own.
	again, err := a.Next("intl-guidance", "Nigeria")
	require.NoError(t, err)
	require.Equal(t, int64(1001), again)

	a.Advance("intl-guidance", "Nigeria")
	id, err = a.Next("intl-guidance", "Nigeria")
	require.NoError(t, err)
	require.Equal(t, int64(1002), id)
}

func TestAllocatorEmptyScope(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	// Empty scope: seed with the configured starting identifier minus one.
	a.Seed("intl-guidance", "Ghana", 2000-1)

	id, err := a.Next("intl-guidance", "Ghana")
	require.NoError(t, err)
	require.Equal(t, int64(2000), id)
}

func TestAllocatorScopesAreIndependent(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	a.Seed("intl-guidance", "Nigeria", 1000)
	a.Seed("intl-guidance", "Kenya", 500)

	a.Advance("intl-guidance", "Nigeria")

	id, err := a.Next("intl-guidance", "Kenya")
	require.NoError(t, err)
	require.Equal(t, int64(501), id)
}

func TestAllocatorUnseeded(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	_, err := a.Next("intl-guidance", "Nigeria")
	require.Error(t, err)

	// Advance on an unseeded scope is a no-op, not a panic.
	a.Advance("intl-guidance", "Nigeria")
	_, err = a.Next("intl-guidance", "Nigeria")
	require.Error(t, err)
}
