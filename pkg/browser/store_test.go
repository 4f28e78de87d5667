package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/browser/browsertest"
)

func TestSessionStoreSaveAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := browser.NewSessionStore(dir)
	require.NoError(t, err)

	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{MaxSessions: 1})
	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(session)

	path, err := store.Save(session, "juanperez")
	require.NoError(t, err)
	require.FileExists(t, path)

	got, ok := store.Lookup("juanperez", 0)
	require.True(t, ok)
	require.Equal(t, path, got)

	_, ok = store.Lookup("nobody", 0)
	require.False(t, ok)

	// Expired entries are not returned.
	_, ok = store.Lookup("juanperez", time.Nanosecond)
	require.False(t, ok)

	// The index survives a reopen.
	reopened, err := browser.NewSessionStore(dir)
	require.NoError(t, err)
	got, ok = reopened.Lookup("juanperez", time.Hour)
	require.True(t, ok)
	require.Equal(t, path, got)

	require.NoError(t, reopened.Forget("juanperez"))
	_, ok = reopened.Lookup("juanperez", 0)
	require.False(t, ok)
}
