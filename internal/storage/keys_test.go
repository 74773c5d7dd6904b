package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhiskeyImageKeyKeepsExtension(t *testing.T) {
	key := WhiskeyImageKey("My Bottle.JPG", "jpeg")

	require.True(t, strings.HasPrefix(key, WhiskeyImagePrefix))
	name := strings.TrimPrefix(key, WhiskeyImagePrefix)
	require.True(t, strings.HasSuffix(name, ".jpg"))

	_, err := uuid.Parse(strings.TrimSuffix(name, ".jpg"))
	assert.NoError(t, err)
}

func TestWhiskeyImageKeyIgnoresPathElements(t *testing.T) {
	for _, filename := range []string{"../../etc/passwd.png", `..\..\evil.png`, "/abs/path/img.png"} {
		key := WhiskeyImageKey(filename, "png")
		assert.True(t, strings.HasPrefix(key, WhiskeyImagePrefix), filename)
		assert.NotContains(t, key, "..", filename)
		assert.Equal(t, 1, strings.Count(strings.TrimPrefix(key, WhiskeyImagePrefix), "."), filename)
	}
}

func TestWhiskeyImageKeyFallsBackToFormat(t *testing.T) {
	assert.True(t, strings.HasSuffix(WhiskeyImageKey("noext", "png"), ".png"))
	assert.True(t, strings.HasSuffix(WhiskeyImageKey("weird.p%g", "gif"), ".gif"))
}

func TestWhiskeyImageKeyIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key := WhiskeyImageKey("a.png", "png")
		_, dup := seen[key]
		require.False(t, dup)
		seen[key] = struct{}{}
	}
}

func TestCacheControlForImageKeys(t *testing.T) {
	assert.Equal(t, immutableCacheControl, cacheControlFor(WhiskeyImageKey("a.png", "png")))
	assert.Empty(t, cacheControlFor("exports/shelf.csv"))
}
