package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsidePopulatesAndHits(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetchCalls := 0
	fetch := func(dest *[]uint) func() error {
		return func() error {
			fetchCalls++
			*dest = []uint{1, 2, 3}
			return nil
		}
	}

	var got []uint
	err := Aside(ctx, ViewedSetKey(7), &got, ViewedSetTTL, fetch(&got))
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, got)
	assert.Equal(t, 1, fetchCalls)

	// Second call must be served from cache.
	var cached []uint
	err = Aside(ctx, ViewedSetKey(7), &cached, ViewedSetTTL, fetch(&cached))
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, cached)
	assert.Equal(t, 1, fetchCalls)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	wantErr := errors.New("db down")
	var got []uint
	err := Aside(ctx, "some:key", &got, ViewedSetTTL, func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestAsideWithoutClientFallsBackToFetch(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var got int
	err := Aside(ctx, "k", &got, ViewedSetTTL, func() error {
		got = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestInvalidateViewedSet(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var got []uint
	err := Aside(ctx, ViewedSetKey(3), &got, ViewedSetTTL, func() error {
		got = []uint{9}
		return nil
	})
	require.NoError(t, err)
	require.True(t, mr.Exists(ViewedSetKey(3)))

	InvalidateViewedSet(ctx, 3)
	assert.False(t, mr.Exists(ViewedSetKey(3)))
}

func TestAsideDropsCorruptEntry(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(LiveStoriesKey, "not-json{{"))

	var got []uint
	err := Aside(ctx, LiveStoriesKey, &got, LiveStoriesTTL, func() error {
		got = []uint{5}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, got)
}
