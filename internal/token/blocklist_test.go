package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBlocklist(t *testing.T) (*Blocklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewBlocklistWithClient(rdb, time.Hour), mr
}

func TestRevokeAndLookup(t *testing.T) {
	bl, _ := newTestBlocklist(t)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-1"))

	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRevokeIdempotent(t *testing.T) {
	bl, _ := newTestBlocklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-2"))
	require.NoError(t, bl.Revoke(ctx, "jti-2"))

	revoked, err := bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestEntryExpires(t *testing.T) {
	bl, mr := newTestBlocklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-3"))
	mr.FastForward(2 * time.Hour)

	revoked, err := bl.IsRevoked(ctx, "jti-3")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestLookupFailsClosedWhenStoreDown(t *testing.T) {
	bl, mr := newTestBlocklist(t)
	ctx := context.Background()

	mr.Close()

	_, err := bl.IsRevoked(ctx, "jti-4")
	require.Error(t, err, "store failure must surface as an error, not as not-revoked")
}
