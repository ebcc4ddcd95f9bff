package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise/internal/entities"
)

func TestLocalStore(t *testing.T) {
	t.Run("store and delete round trip", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		ref, err := store.Store([]byte("picture bytes"), ".png")
		require.NoError(t, err)
		assert.Equal(t, ".png", filepath.Ext(ref))

		data, err := os.ReadFile(filepath.Join(store.dir, ref))
		require.NoError(t, err)
		assert.Equal(t, "picture bytes", string(data))

		require.NoError(t, store.Delete(ref))
		_, err = os.Stat(filepath.Join(store.dir, ref))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("extension dot is normalized", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		ref, err := store.Store([]byte("x"), "pdf")
		require.NoError(t, err)
		assert.Equal(t, ".pdf", filepath.Ext(ref))
	})

	t.Run("default references are never deleted", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewLocalStore(dir)
		require.NoError(t, err)

		path := filepath.Join(dir, entities.DefaultBookPicture)
		require.NoError(t, os.WriteFile(path, []byte("shared"), 0o644))

		require.NoError(t, store.Delete(entities.DefaultBookPicture))
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("missing files are silently skipped", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)
		assert.NoError(t, store.Delete("gone.png"))
	})

	t.Run("path traversal references are refused", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)
		assert.Error(t, store.Delete("../etc/passwd"))
	})
}

func TestIsDefault(t *testing.T) {
	assert.True(t, IsDefault(entities.DefaultProfilePicture))
	assert.False(t, IsDefault("abc123.png"))
}
