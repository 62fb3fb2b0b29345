package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": {"id": 1, "name": "rex"}, "2": {"id": 2, "name": "tom"}}`), 0o644))

	s := Open("pets", NewStoreProvider("store-inmem"))
	require.NoError(t, PreloadFile(s, path))

	val, found := s.GetValue("1")
	require.True(t, found)
	assert.Equal(t, map[string]interface{}{"id": float64(1), "name": "rex"}, val)
	assert.Len(t, s.GetAllValues(""), 2)

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, PreloadFile(s, filepath.Join(dir, "missing.json")))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`[1, 2`), 0o644))
		assert.ErrorContains(t, PreloadFile(s, bad), "invalid JSON")
	})
}

func TestStoreHandle(t *testing.T) {
	provider := NewStoreProvider("store-inmem")
	pets := Open("pets", provider)
	owners := Open("owners", provider)

	Preload(pets, map[string]interface{}{"1": "rex"})
	owners.StoreValue("1", "alice")

	assert.Equal(t, "pets", pets.Name())
	val, _ := pets.GetValue("1")
	assert.Equal(t, "rex", val)

	pets.Clear()
	_, found := pets.GetValue("1")
	assert.False(t, found)
	_, found = owners.GetValue("1")
	assert.True(t, found, "clearing one store must not affect another")
}

func TestStoreKeyPrefix(t *testing.T) {
	provider := NewStoreProvider("store-inmem")

	t.Run("WithoutPrefix", func(t *testing.T) {
		t.Setenv("SHIM_STORE_KEY_PREFIX", "")
		s := Open("test", provider)
		s.StoreValue("key1", "value1")
		val, found := s.GetValue("key1")
		require.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("WithPrefix", func(t *testing.T) {
		t.Setenv("SHIM_STORE_KEY_PREFIX", "tenant")

		s := Open("prefixed", provider)
		s.StoreValue("key1", "value1")
		val, found := s.GetValue("key1")
		require.True(t, found)
		assert.Equal(t, "value1", val)

		values := s.GetAllValues("key")
		assert.Equal(t, map[string]interface{}{"key1": "value1"}, values)
	})
}

func TestStoreProviderSelection(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		env    string
	}{
		{name: "default provider"},
		{name: "explicit in-memory", driver: "store-inmem"},
		{name: "unknown driver falls back", driver: "store-unknown"},
		{name: "driver from environment", env: "store-inmem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHIM_STORE_DRIVER", tt.env)
			provider := NewStoreProvider(tt.driver)
			assert.IsType(t, &InMemoryStoreProvider{}, provider)
		})
	}

	t.Run("RedisProvider", func(t *testing.T) {
		if os.Getenv("REDIS_ADDR") == "" {
			t.Skip("Skipping Redis test: REDIS_ADDR not set")
		}
		assert.IsType(t, &RedisStoreProvider{}, NewStoreProvider("store-redis"))
	})
}
