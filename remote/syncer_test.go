package remote

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/model"
	"github.com/hupe1980/labelstore/resource"
)

const datasetURI = "s3://bucket/sets/train/annotations.json"

var errNetwork = errors.New("network unreachable")

func newTestSyncer(t *testing.T, opts ...Option) (*Syncer, *MemoryStore) {
	t.Helper()
	mem := NewMemoryStore()
	base := []Option{WithCacheDir(t.TempDir()), WithRetryPolicy(fastRetry)}
	return NewSyncer(mem, append(base, opts...)...), mem
}

func TestLocalPathLocal(t *testing.T) {
	s, mem := newTestSyncer(t)

	path, err := s.LocalPath(t.Context(), "/data/set.json")
	require.NoError(t, err)
	assert.Equal(t, "/data/set.json", path)
	assert.Zero(t, mem.Calls("get"))
}

func TestLocalPathDownloadsAndCaches(t *testing.T) {
	collector := &metrics.Basic{}
	s, mem := newTestSyncer(t, WithMetrics(collector))
	etag := mem.Seed("bucket", "sets/train/annotations.json", []byte(`{"images":[]}`))

	path, err := s.LocalPath(t.Context(), datasetURI)
	require.NoError(t, err)
	assert.Equal(t, s.Cache().DatasetPath(datasetURI), path)
	assert.Equal(t, path, s.State().LocalPath())
	assert.False(t, s.DirtyStatus())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"images":[]}`, string(data))

	meta, err := ReadMetadata(s.fs, s.Cache().MetadataPath(datasetURI))
	require.NoError(t, err)
	assert.Equal(t, TrimETag(etag), meta.ETag)
	assert.Equal(t, datasetURI, meta.SourceURI)
	require.NotNil(t, meta.ContentLength)
	assert.Equal(t, int64(13), *meta.ContentLength)
	assert.NotZero(t, meta.CachedAt)

	// Second resolution hits the cache after a HEAD.
	_, err = s.LocalPath(t.Context(), datasetURI)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Calls("get"))
	assert.Equal(t, 1, mem.Calls("head"))
	assert.Equal(t, int64(1), collector.Stats().CacheHits)
	assert.Equal(t, int64(1), collector.Stats().CacheMisses)
}

func TestIsCacheValid(t *testing.T) {
	seed := func(t *testing.T) (*Syncer, *MemoryStore) {
		s, mem := newTestSyncer(t)
		mem.Seed("bucket", "sets/train/annotations.json", []byte(`{"v":1}`))
		_, err := s.DownloadDataset(t.Context(), datasetURI)
		require.NoError(t, err)
		return s, mem
	}

	t.Run("exact match", func(t *testing.T) {
		s, _ := seed(t)
		assert.True(t, s.IsCacheValid(t.Context(), datasetURI))
	})

	t.Run("missing sidecar", func(t *testing.T) {
		s, _ := seed(t)
		require.NoError(t, os.Remove(s.Cache().MetadataPath(datasetURI)))
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
	})

	t.Run("corrupt sidecar", func(t *testing.T) {
		s, _ := seed(t)
		require.NoError(t, os.WriteFile(s.Cache().MetadataPath(datasetURI), []byte("{oops"), 0o644))
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
	})

	t.Run("missing document", func(t *testing.T) {
		s, _ := seed(t)
		require.NoError(t, os.Remove(s.Cache().DatasetPath(datasetURI)))
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
	})

	t.Run("remote changed", func(t *testing.T) {
		s, mem := seed(t)
		mem.Seed("bucket", "sets/train/annotations.json", []byte(`{"v":2}`))
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
	})

	t.Run("remote unreachable", func(t *testing.T) {
		s, mem := seed(t)
		mem.FailNext("head", errNetwork, errNetwork, errNetwork)
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
		assert.Equal(t, 3, mem.Calls("head"))
	})

	t.Run("never downloaded", func(t *testing.T) {
		s, _ := newTestSyncer(t)
		assert.False(t, s.IsCacheValid(t.Context(), datasetURI))
	})
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "sets/train/annotations.json", []byte(`{}`))
	mem.FailNext("get", errNetwork, errNetwork)

	_, err := s.DownloadDataset(t.Context(), datasetURI)
	require.NoError(t, err)
	assert.Equal(t, 3, mem.Calls("get"))
}

func TestDownloadExhaustsRetries(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "sets/train/annotations.json", []byte(`{}`))
	mem.FailNext("get", errNetwork, errNetwork, errNetwork)

	_, err := s.LocalPath(t.Context(), datasetURI)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.ErrorIs(t, err, errNetwork)
	assert.Empty(t, s.State().LocalPath())
}

func TestDownloadMissingObject(t *testing.T) {
	s, mem := newTestSyncer(t)

	_, err := s.DownloadDataset(t.Context(), datasetURI)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, mem.Calls("get"))
}

func TestDownloadImageOnce(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "sets/train/img/1.png", []byte("png-bytes"))
	uri := "s3://bucket/sets/train/img/1.png"

	p1, err := s.DownloadImage(t.Context(), uri)
	require.NoError(t, err)
	p2, err := s.DownloadImage(t.Context(), uri)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, s.Cache().ImagePath(uri), p1)
	assert.Equal(t, 1, mem.Calls("get"))

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestDownloadImageConcurrent(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "img.jpg", []byte("jpg"))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DownloadImage(t.Context(), "s3://bucket/img.jpg")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mem.Calls("get"))
}

func TestDownloadImageUsesExistingFile(t *testing.T) {
	s, mem := newTestSyncer(t)
	uri := "s3://bucket/img.jpg"
	path := s.Cache().ImagePath(uri)
	require.NoError(t, os.MkdirAll(s.Cache().ImagesDir(), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("cached"), 0o644))

	got, err := s.DownloadImage(t.Context(), uri)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Zero(t, mem.Calls("get"))
}

func TestPrefetchImages(t *testing.T) {
	s, mem := newTestSyncer(t, WithLimits(resource.Config{MaxConcurrentDownloads: 2}))
	uris := []string{"/local/skip.jpg"}
	for _, k := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		mem.Seed("bucket", k, []byte(k))
		uris = append(uris, "s3://bucket/"+k)
	}

	require.NoError(t, s.PrefetchImages(t.Context(), uris))
	assert.Equal(t, 4, mem.Calls("get"))
	for _, uri := range uris[1:] {
		_, err := os.Stat(s.Cache().ImagePath(uri))
		assert.NoError(t, err)
	}

	err := s.PrefetchImages(t.Context(), []string{"s3://bucket/missing.jpg"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpload(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "sets/train/annotations.json", []byte(`{"v":1}`))

	path, err := s.LocalPath(t.Context(), datasetURI)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"v":2}`), 0o644))
	s.MarkDirty(path)
	require.True(t, s.DirtyStatus())

	res, err := s.Upload(t.Context(), datasetURI, path)
	require.NoError(t, err)
	assert.False(t, s.DirtyStatus())
	assert.Equal(t, datasetURI, res.URI)
	assert.Equal(t, int64(7), res.Size)
	assert.NotEmpty(t, res.ETag)
	assert.NotContains(t, res.ETag, `"`)

	body, ok := mem.Object("bucket", "sets/train/annotations.json")
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(body))
	assert.Equal(t, ContentTypeJSON, mem.ContentType("bucket", "sets/train/annotations.json"))

	meta, err := ReadMetadata(s.fs, s.Cache().MetadataPath(datasetURI))
	require.NoError(t, err)
	assert.Equal(t, res.ETag, meta.ETag)

	// The refreshed sidecar keeps the cache valid without a re-download.
	assert.True(t, s.IsCacheValid(t.Context(), datasetURI))
}

// putHookStore runs before ahead of each Put.
type putHookStore struct {
	*MemoryStore
	before func()
}

func (h *putHookStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (ObjectInfo, error) {
	if before := h.before; before != nil {
		before()
	}
	return h.MemoryStore.Put(ctx, bucket, key, data, contentType)
}

func TestUploadKeepsDirtyWhenSavedMeanwhile(t *testing.T) {
	mem := NewMemoryStore()
	mem.Seed("bucket", "sets/train/annotations.json", []byte(`{"v":1}`))
	hook := &putHookStore{MemoryStore: mem}
	s := NewSyncer(hook, WithCacheDir(t.TempDir()), WithRetryPolicy(fastRetry))

	path, err := s.LocalPath(t.Context(), datasetURI)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"v":2}`), 0o644))
	s.MarkDirty(path)

	hook.before = func() {
		hook.before = nil
		require.NoError(t, os.WriteFile(path, []byte(`{"v":3}`), 0o644))
		s.MarkDirty(path)
	}

	_, err = s.Upload(t.Context(), datasetURI, path)
	require.NoError(t, err)
	assert.True(t, s.DirtyStatus())
	body, ok := mem.Object("bucket", "sets/train/annotations.json")
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(body))

	_, err = s.Upload(t.Context(), datasetURI, path)
	require.NoError(t, err)
	assert.False(t, s.DirtyStatus())
	body, _ = mem.Object("bucket", "sets/train/annotations.json")
	assert.Equal(t, `{"v":3}`, string(body))
}

func TestDirtyStateMarkCleanIfUnchanged(t *testing.T) {
	var st DirtyState
	st.MarkDirty()
	v := st.Version()

	st.MarkDirty()
	assert.False(t, st.MarkClean(v))
	assert.True(t, st.IsDirty())

	assert.True(t, st.MarkClean(st.Version()))
	assert.False(t, st.IsDirty())
}

func TestUploadFailureKeepsDirty(t *testing.T) {
	s, mem := newTestSyncer(t)
	mem.Seed("bucket", "sets/train/annotations.json", []byte(`{}`))
	path, err := s.LocalPath(t.Context(), datasetURI)
	require.NoError(t, err)
	s.MarkDirty(path)

	mem.FailNext("put", errNetwork, errNetwork, errNetwork)
	_, err = s.Upload(t.Context(), datasetURI, path)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.True(t, s.DirtyStatus())
	assert.Equal(t, 3, mem.Calls("put"))

	_, err = s.Upload(t.Context(), "/not/remote.json", path)
	assert.ErrorIs(t, err, model.ErrInvalid)
}
