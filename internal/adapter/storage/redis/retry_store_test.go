package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStore_Increment(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRetryStore(client)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := store.Increment(ctx, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRetryStore_Increment_IndependentKeys(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRetryStore(client)
	ctx := context.Background()

	_, err := store.Increment(ctx, "pi_aaa")
	require.NoError(t, err)

	got, err := store.Increment(ctx, "pi_bbb")
	require.NoError(t, err)
	assert.Equal(t, 1, got, "counters are per aggregate")
}

func TestRetryStore_Reset(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRetryStore(client)
	ctx := context.Background()

	_, err := store.Increment(ctx, "pi_123")
	require.NoError(t, err)
	_, err = store.Increment(ctx, "pi_123")
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, "pi_123"))

	got, err := store.Increment(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, 1, got, "count restarts after reset")
}

func TestRetryStore_Reset_MissingKey(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRetryStore(client)

	assert.NoError(t, store.Reset(context.Background(), "pi_never_failed"))
}
