package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PutGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("round-trips a blob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "scratchpads/2025/m1.json", []byte(`{"content":"x"}`)))

		data, err := store.Get(ctx, "scratchpads/2025/m1.json")
		require.NoError(t, err)
		assert.Equal(t, `{"content":"x"}`, string(data))
	})

	t.Run("replaces existing blob whole", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "k/a.json", []byte("first value, long")))
		require.NoError(t, store.Put(ctx, "k/a.json", []byte("second")))

		data, err := store.Get(ctx, "k/a.json")
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("missing key is ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "nope/missing.json")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "tmpcheck/a.json", []byte("x")))
		entries, err := os.ReadDir(filepath.Join(store.Root(), "tmpcheck"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestFileStore_Exists(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "a/b.json", []byte("x")))
	ok, err = store.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_List(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{
		"data/week_3/nfl_lines_week_3_20250918_120000.json",
		"data/week_3/nfl_lines_week_3_sunday_20250919_120000.json",
		"data/week_30/nfl_lines_week_30_20250918_120000.json",
		"data/week_4/nfl_lines_week_4_20250925_120000.json",
	} {
		require.NoError(t, store.Put(ctx, key, []byte("{}")))
	}

	keys, err := store.List(ctx, "data/week_3/nfl_lines_week_3_")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data/week_3/nfl_lines_week_3_20250918_120000.json",
		"data/week_3/nfl_lines_week_3_sunday_20250919_120000.json",
	}, keys)

	keys, err = store.List(ctx, "data/week_9/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"a.json", "scratchpads/2025/m%2F1.json"}
	for _, key := range valid {
		assert.NoError(t, ValidateKey(key), key)
	}

	invalid := []string{"", "/abs", "a/../b", "a//b", "./a", `a\b`}
	for _, key := range invalid {
		assert.Error(t, ValidateKey(key), key)
	}
}
