package flags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestStore_UpsertAndGet(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	flag, err := store.Upsert(ctx, "ntswap.paused", true, "maintenance")
	require.NoError(t, err)
	assert.Equal(t, "ntswap.paused", flag.Key)
	assert.True(t, flag.Value)
	assert.Equal(t, "maintenance", flag.Note)
	assert.NotEmpty(t, flag.Description)

	got, err := store.Get(ctx, "ntswap.paused")
	require.NoError(t, err)
	assert.Equal(t, flag.Value, got.Value)
	assert.Equal(t, flag.UpdatedAt, got.UpdatedAt)

	time.Sleep(time.Millisecond)
	flag2, err := store.Upsert(ctx, "ntswap.paused", false, "")
	require.NoError(t, err)
	assert.True(t, flag2.UpdatedAt.After(flag.UpdatedAt))

	on, err := store.Enabled(ctx, "ntswap.paused")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestStore_GetMissing(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "nonexistent.flag")
	assert.ErrorIs(t, err, ErrNotFound)

	on, err := store.Enabled(ctx, "nonexistent.flag")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestStore_DeleteAndList(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	flags, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags)

	for _, k := range []string{"yields.strict", "ntswap.paused", "api.ai"} {
		_, err := store.Upsert(ctx, k, true, "")
		require.NoError(t, err)
	}

	flags, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 3)
	assert.Equal(t, "api.ai", flags[0].Key)
	assert.Equal(t, "yields.strict", flags[2].Key)

	require.NoError(t, store.Delete(ctx, "api.ai"))
	_, err = store.Get(ctx, "api.ai")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "api.ai"))

	flags, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flags, 2)
}

func TestStore_Concurrent(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	const workers, ops = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := fmt.Sprintf("flag.%d.%d", id, j)
				_, err := store.Upsert(ctx, key, (id+j)%2 == 0, "")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	flags, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flags, workers*ops)
}

func TestValidateKey(t *testing.T) {
	for _, k := range []string{"ntswap.paused", "flag-1", "a", "x_y.z"} {
		assert.NoError(t, ValidateKey(k), k)
	}
	for _, k := range []string{"", " ", "with space", "with:colon", "tab\there", strings.Repeat("a", 129)} {
		assert.Error(t, ValidateKey(k), k)
	}
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

type fakeReader struct {
	on  bool
	err error
}

func (f fakeReader) Enabled(context.Context, string) (bool, error) { return f.on, f.err }

func TestPauseGate(t *testing.T) {
	ctx := context.Background()
	assert.False(t, PauseGate{}.Paused(ctx))
	assert.True(t, PauseGate{Flags: fakeReader{on: true}, Key: "ntswap.paused"}.Paused(ctx))
	assert.False(t, PauseGate{Flags: fakeReader{on: false}, Key: "ntswap.paused"}.Paused(ctx))
	assert.False(t, PauseGate{Flags: fakeReader{err: errors.New("down")}, Key: "ntswap.paused"}.Paused(ctx))
}

func TestDescribe(t *testing.T) {
	assert.NotEmpty(t, Describe("ntswap.paused"))
	assert.Empty(t, Describe("yields.strict"))
}
