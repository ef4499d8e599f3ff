package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/remote"
)

func TestMapError(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	assert.ErrorIs(t, mapError(notFound, "b", "k"), remote.ErrObjectNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	assert.False(t, errors.Is(mapError(denied, "b", "k"), remote.ErrObjectNotFound))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	bucket := "test-labelstore"

	store, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = store.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := store.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte(`{"images":[],"annotations":[],"categories":[]}`)
	put, err := store.Put(ctx, bucket, "sets/a.json", data, remote.ContentTypeJSON)
	require.NoError(t, err)
	require.NotEmpty(t, put.ETag)

	head, err := store.Head(ctx, bucket, "sets/a.json")
	require.NoError(t, err)
	assert.Equal(t, remote.TrimETag(put.ETag), remote.TrimETag(head.ETag))

	got, info, err := store.Get(ctx, bucket, "sets/a.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), *info.ContentLength)

	_, err = store.Head(ctx, bucket, "sets/missing.json")
	assert.ErrorIs(t, err, remote.ErrObjectNotFound)

	// End-to-end through the syncer.
	syncer := remote.NewSyncer(store, remote.WithCacheDir(t.TempDir()))
	uri := "s3://" + bucket + "/sets/a.json"
	local, err := syncer.LocalPath(ctx, uri)
	require.NoError(t, err)
	assert.True(t, syncer.IsCacheValid(ctx, uri))
	assert.FileExists(t, local)
}
