package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark wins, second is rejected", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		fresh, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = store.MarkProcessed(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("expired entries can be re-marked", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(ctx, "evt_2", time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		fresh, err := store.MarkProcessed(ctx, "evt_2", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("is processed reflects ttl", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		processed, err := store.IsProcessed(ctx, "evt_3")
		require.NoError(t, err)
		assert.False(t, processed)

		_, err = store.MarkProcessed(ctx, "evt_3", time.Minute)
		require.NoError(t, err)

		processed, err = store.IsProcessed(ctx, "evt_3")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("exactly one concurrent marker wins", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		const workers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fresh, err := store.MarkProcessed(ctx, "evt_race", time.Minute)
				require.NoError(t, err)
				if fresh {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})

	t.Run("sweep removes expired entries", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(ctx, "evt_old", time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		store.sweep()
		assert.Equal(t, 0, store.Size())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
