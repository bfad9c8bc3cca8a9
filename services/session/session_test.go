package sessionsvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
)

func testStore(t *testing.T, store core.SessionStore, expire func(time.Duration)) {
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "sid-1", time.Now().Add(time.Minute)))
	revoked, err = store.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no revocation
	require.NoError(t, store.Revoke(ctx, "sid-2", time.Now().Add(-time.Minute)))
	revoked, err = store.IsRevoked(ctx, "sid-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	expire(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore().(*memoryStore)
	var offset time.Duration
	store.now = func() time.Time { return time.Now().Add(offset) }

	testStore(t, store, func(d time.Duration) { offset = d })
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	testStore(t, NewRedisStore(client), mr.FastForward)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
