package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docsift/pkg/cache"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	key := cache.Key("mistral", "some text")

	var missing string
	found, err := store.Get("summary", key, &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put("summary", key, "a summary"))

	var got string
	found, err = store.Get("summary", key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a summary", got)
}

func TestKeyDependsOnModelAndText(t *testing.T) {
	assert.Equal(t, cache.Key("m", "text"), cache.Key("m", "text"))
	assert.NotEqual(t, cache.Key("m1", "text"), cache.Key("m2", "text"))
	assert.NotEqual(t, cache.Key("m", "text a"), cache.Key("m", "text b"))
}
