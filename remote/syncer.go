package remote

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/model"
	"github.com/hupe1980/labelstore/resource"
)

// UploadResult describes a completed dataset upload.
type UploadResult struct {
	URI  string
	ETag string
	Size int64
}

// Syncer moves datasets and images between an ObjectStore and the local
// cache. It is safe for concurrent use.
type Syncer struct {
	objects ObjectStore
	cache   CacheDir
	fs      fs.FileSystem
	retry   RetryPolicy
	logger  *slog.Logger
	metrics metrics.Collector
	limits  *resource.Controller

	state DirtyState

	// images memoizes locators already present in the image cache.
	images *xsync.MapOf[string, string]
	flight singleflight.Group
}

// NewSyncer creates a syncer backed by objects.
func NewSyncer(objects ObjectStore, opts ...Option) *Syncer {
	s := &Syncer{
		objects: objects,
		fs:      fs.Default,
		retry:   DefaultRetryPolicy(),
		metrics: metrics.Noop{},
		images:  xsync.NewMapOf[string, string](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache.root == "" {
		s.cache = NewCacheDir("")
	}
	if s.limits == nil {
		s.limits = resource.NewController(resource.Config{})
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Cache returns the cache layout.
func (s *Syncer) Cache() CacheDir {
	return s.cache
}

// LocalPath returns a local file holding the dataset at uri.
//
// Local locators are returned with the home prefix expanded. Remote ones are
// served from the cache while its ETag matches, and downloaded otherwise.
// The result becomes the tracked local copy with a clean dirty flag.
func (s *Syncer) LocalPath(ctx context.Context, uri string) (string, error) {
	if !IsRemote(uri) {
		return ExpandHome(uri), nil
	}
	path := s.cache.DatasetPath(uri)
	if s.IsCacheValid(ctx, uri) {
		s.logger.Info("using cached dataset", "uri", uri, "path", path)
	} else {
		var err error
		if path, err = s.DownloadDataset(ctx, uri); err != nil {
			return "", err
		}
	}
	s.state.SetLocalPath(path)
	return path, nil
}

// IsCacheValid reports whether the cached copy of uri matches the remote
// object. A missing file or sidecar, a corrupt sidecar, an ETag mismatch and
// any failure to reach the store all yield false.
func (s *Syncer) IsCacheValid(ctx context.Context, uri string) bool {
	valid := s.checkCache(ctx, uri)
	s.metrics.RecordCacheLookup(metrics.CacheDataset, valid)
	return valid
}

func (s *Syncer) checkCache(ctx context.Context, uri string) bool {
	if _, err := s.fs.Stat(s.cache.DatasetPath(uri)); err != nil {
		return false
	}
	meta, err := ReadMetadata(s.fs, s.cache.MetadataPath(uri))
	if err != nil {
		s.logger.Debug("cache sidecar unusable", "uri", uri, "error", err)
		return false
	}
	info, err := s.head(ctx, uri)
	if err != nil {
		s.logger.Warn("cannot verify cached dataset, re-downloading", "uri", uri, "error", err)
		return false
	}
	if current := TrimETag(info.ETag); current != meta.ETag {
		s.logger.Info("remote dataset changed, cache invalidated", "uri", uri, "etag", current, "cached_etag", meta.ETag)
		return false
	}
	return true
}

// DownloadDataset fetches uri into the cache, writes its sidecar and
// returns the local path.
func (s *Syncer) DownloadDataset(ctx context.Context, uri string) (string, error) {
	data, info, err := s.get(ctx, uri)
	if err != nil {
		return "", err
	}
	path := s.cache.DatasetPath(uri)
	if err := fs.WriteFileAtomic(s.fs, path, data, 0o644); err != nil {
		return "", &model.Error{Kind: model.KindPermanentIO, Op: "cache dataset", Msg: path, Err: err}
	}
	if info.ContentLength == nil {
		n := int64(len(data))
		info.ContentLength = &n
	}
	if err := WriteMetadata(s.fs, s.cache.MetadataPath(uri), NewMetadata(uri, info)); err != nil {
		return "", &model.Error{Kind: model.KindPermanentIO, Op: "cache dataset", Msg: "write sidecar", Err: err}
	}
	s.logger.Info("dataset downloaded", "uri", uri, "path", path, "bytes", len(data))
	return path, nil
}

// DownloadImage returns the cached copy of the image at uri, downloading it
// on first use. Concurrent requests for one locator share a single download.
func (s *Syncer) DownloadImage(ctx context.Context, uri string) (string, error) {
	if path, ok := s.images.Load(uri); ok {
		if _, err := s.fs.Stat(path); err == nil {
			s.metrics.RecordCacheLookup(metrics.CacheImage, true)
			return path, nil
		}
		s.images.Delete(uri)
	}

	v, err, _ := s.flight.Do(uri, func() (any, error) {
		path := s.cache.ImagePath(uri)
		if _, err := s.fs.Stat(path); err == nil {
			s.metrics.RecordCacheLookup(metrics.CacheImage, true)
			s.images.Store(uri, path)
			return path, nil
		}
		s.metrics.RecordCacheLookup(metrics.CacheImage, false)

		if err := s.limits.AcquireDownload(ctx); err != nil {
			return "", err
		}
		defer s.limits.ReleaseDownload()

		data, _, err := s.get(ctx, uri)
		if err != nil {
			return "", err
		}
		if err := fs.WriteFileAtomic(s.fs, path, data, 0o644); err != nil {
			return "", &model.Error{Kind: model.KindPermanentIO, Op: "cache image", Msg: path, Err: err}
		}
		s.images.Store(uri, path)
		s.logger.Debug("image downloaded", "uri", uri, "path", path, "bytes", len(data))
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PrefetchImages warms the image cache for uris, bounded by the download
// slot limit. It returns the first error.
func (s *Syncer) PrefetchImages(ctx context.Context, uris []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(s.limits.MaxConcurrentDownloads()))
	for _, uri := range uris {
		if !IsRemote(uri) {
			continue
		}
		g.Go(func() error {
			_, err := s.DownloadImage(ctx, uri)
			return err
		})
	}
	return g.Wait()
}

// Upload puts the file at localPath to uri, rewrites the sidecar with the new
// ETag and clears the dirty flag. The flag stays set if any step fails or if
// the file was saved again while the upload was in flight.
// Callers flush the document store first.
func (s *Syncer) Upload(ctx context.Context, uri, localPath string) (UploadResult, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return UploadResult{}, err
	}
	version := s.state.Version()
	data, err := s.fs.ReadFile(localPath)
	if err != nil {
		return UploadResult{}, &model.Error{Kind: model.KindPermanentIO, Op: "upload", Msg: localPath, Err: err}
	}

	info, err := call(ctx, s, metrics.OpPut, func(ctx context.Context) (ObjectInfo, error) {
		return s.objects.Put(ctx, bucket, key, data, ContentTypeJSON)
	})
	if err != nil {
		return UploadResult{}, err
	}

	size := int64(len(data))
	info.ContentLength = &size
	if err := WriteMetadata(s.fs, s.cache.MetadataPath(uri), NewMetadata(uri, info)); err != nil {
		return UploadResult{}, &model.Error{Kind: model.KindPermanentIO, Op: "upload", Msg: "write sidecar", Err: err}
	}
	if !s.state.MarkClean(version) {
		s.logger.Warn("dataset changed during upload, keeping dirty flag", "uri", uri, "path", localPath)
	}

	res := UploadResult{URI: uri, ETag: TrimETag(info.ETag), Size: size}
	s.logger.Debug("dataset uploaded", "uri", uri, "etag", res.ETag, "bytes", size)
	return res, nil
}

// MarkDirty flags the local copy as changed. The document store calls it
// after each successful save.
func (s *Syncer) MarkDirty(localPath string) {
	s.state.MarkDirty()
	s.logger.Debug("local dataset marked dirty", "path", localPath)
}

// DirtyStatus reports whether there are saved changes not yet uploaded.
func (s *Syncer) DirtyStatus() bool {
	return s.state.IsDirty()
}

// State exposes the dirty flag and tracked local path.
func (s *Syncer) State() *DirtyState {
	return &s.state
}

func (s *Syncer) head(ctx context.Context, uri string) (ObjectInfo, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return ObjectInfo{}, err
	}
	return call(ctx, s, metrics.OpHead, func(ctx context.Context) (ObjectInfo, error) {
		return s.objects.Head(ctx, bucket, key)
	})
}

type getResult struct {
	data []byte
	info ObjectInfo
}

func (s *Syncer) get(ctx context.Context, uri string) ([]byte, ObjectInfo, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	res, err := call(ctx, s, metrics.OpGet, func(ctx context.Context) (getResult, error) {
		data, info, err := s.objects.Get(ctx, bucket, key)
		return getResult{data: data, info: info}, err
	})
	return res.data, res.info, err
}

// call applies rate limiting, retries and metrics to one remote operation.
func call[T any](ctx context.Context, s *Syncer, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, attempts, err := withRetry(ctx, s.retry, s.logger, op, func(ctx context.Context) (T, error) {
		if err := s.limits.WaitRequest(ctx); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	})
	s.metrics.RecordRemote(op, attempts, time.Since(start), err)
	return v, err
}
