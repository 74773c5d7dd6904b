package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiskeyshelf/apiserver/config"
)

func TestOpenMemoryBackend(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{
		Backend: config.StorageBackendMemory,
		Minio:   config.MinioConfig{Bucket: "whiskey"},
	})
	require.NoError(t, err)
	assert.Equal(t, "whiskey", s.Bucket())

	require.NoError(t, s.Put(ctx, "uploads/whiskey/a.png", bytes.NewReader([]byte("png")), 3, "image/png"))

	r, err := s.Get(ctx, "uploads/whiskey/a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, s.Delete(ctx, "uploads/whiskey/a.png"))
	_, err = s.Get(ctx, "uploads/whiskey/a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// Missing and empty keys are not errors.
	assert.NoError(t, s.Delete(ctx, "uploads/whiskey/a.png"))
	assert.NoError(t, s.Delete(ctx, ""))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestMinioConfigReportsEveryMissingSetting(t *testing.T) {
	_, err := NewMinioBackend(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "whiskey"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MINIO_ACCESS_KEY is required")
	assert.Contains(t, err.Error(), "MINIO_SECRET_KEY is required")
	assert.NotContains(t, err.Error(), "MINIO_BUCKET")

	_, err = Open(context.Background(), config.StorageConfig{Backend: config.StorageBackendMinio})
	assert.ErrorContains(t, err, "MINIO_ENDPOINT is required")
}

func TestGCSRequiresBucket(t *testing.T) {
	_, err := NewGCSBackend(context.Background(), config.GCSConfig{})
	assert.EqualError(t, err, "GCS_BUCKET is required")
}
