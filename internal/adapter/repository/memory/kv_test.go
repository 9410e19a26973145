package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerbot/internal/usecase"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewCache()
	c.kv.now = clock.now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	clock.t = clock.t.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, err = c.Get(ctx, "forever")
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)
}

func TestIdempotencyStore_ClaimUpdateRelease(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()

	exists, _, err := s.CheckAndSet(ctx, "key", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, value, err := s.CheckAndSet(ctx, "key", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, usecase.IdempotencyPending, string(value))

	require.NoError(t, s.Update(ctx, "key", []byte("done"), time.Minute))
	_, value, _ = s.CheckAndSet(ctx, "key", nil, time.Minute)
	assert.Equal(t, "done", string(value))

	require.NoError(t, s.Release(ctx, "key"))
	exists, _, _ = s.CheckAndSet(ctx, "key", nil, time.Minute)
	assert.False(t, exists)
}

func TestIdempotencyStore_SingleClaimUnderContention(t *testing.T) {
	s := NewIdempotencyStore()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exists, _, err := s.CheckAndSet(context.Background(), "race", nil, time.Minute)
			if err == nil && !exists {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claims)
}
