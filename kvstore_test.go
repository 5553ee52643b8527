package lessonplanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the same checks against any KVStore
func exerciseStore(t *testing.T, store KVStore) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, activitiesKey, []byte(`[{"id":"1"}]`)))
	value, ok, err := store.Get(ctx, activitiesKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(value))

	require.NoError(t, store.Put(ctx, activitiesKey, []byte(`[]`)))
	value, ok, err = store.Get(ctx, activitiesKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", string(value))
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), addr, 15, "lessonplanner-test:"+t.Name()+":")
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1", 0, "x:")
	assert.Error(t, err)
}
