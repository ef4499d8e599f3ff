package labelstore

import (
	"log/slog"
	"time"

	"github.com/hupe1980/labelstore/codec"
	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/remote"
	"github.com/hupe1980/labelstore/resource"
	"github.com/hupe1980/labelstore/store"
	"github.com/hupe1980/labelstore/window"
)

type options struct {
	codec            codec.Codec
	fs               fs.FileSystem
	objects          remote.ObjectStore
	cacheDir         string
	autoSaveInterval time.Duration
	window           window.Config
	metricsCollector metrics.Collector
	logger           *Logger
	backup           store.Compression
	retry            remote.RetryPolicy
	limits           resource.Config
}

// Option configures Open.
type Option func(*options)

// WithCodec configures the codec used to read and write the dataset file.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithObjectStore sets the backend used for s3:// locators and remote
// image references. Opening a remote dataset without one fails.
//
// Example:
//
//	objects, _ := s3.New(ctx)
//	sess, _ := labelstore.Open(ctx, "s3://bucket/train.json", labelstore.WithObjectStore(objects))
func WithObjectStore(objects remote.ObjectStore) Option {
	return func(o *options) {
		o.objects = objects
	}
}

// WithCacheDir sets the root of the local cache for remote datasets and
// images. The default follows XDG_CACHE_HOME (LOCALAPPDATA on Windows).
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithAutoSaveInterval sets the debounce delay between the first unsaved
// mutation and the automatic write. A value <= 0 disables auto-save; changes
// are then written only by Flush, SaveDataset and Close.
func WithAutoSaveInterval(d time.Duration) Option {
	return func(o *options) {
		o.autoSaveInterval = d
	}
}

// WithWindow configures the size of the serving window and the head/tail
// split used for large datasets.
func WithWindow(cfg window.Config) Option {
	return func(o *options) {
		o.window = cfg
	}
}

// WithMetricsCollector configures metrics collection for saves, mutations
// and remote calls.
//
// Example with the basic collector:
//
//	m := &metrics.Basic{}
//	sess, _ := labelstore.Open(ctx, path, labelstore.WithMetricsCollector(m))
//	// ... use sess ...
//	stats := m.Stats()
//	fmt.Printf("Saves: %d, Remote retries: %d\n", stats.Saves, stats.RemoteRetries)
func WithMetricsCollector(mc metrics.Collector) Option {
	return func(o *options) {
		if mc == nil {
			mc = metrics.Noop{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := labelstore.NewJSONLogger(slog.LevelInfo)
//	sess, _ := labelstore.Open(ctx, path, labelstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBackup keeps a compressed copy of the previous file version next to
// the dataset on every save.
func WithBackup(c store.Compression) Option {
	return func(o *options) {
		o.backup = c
	}
}

// WithRetryPolicy overrides the retry budget for remote calls.
func WithRetryPolicy(p remote.RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithLimits bounds concurrent image downloads and the remote request rate.
func WithLimits(cfg resource.Config) Option {
	return func(o *options) {
		o.limits = cfg
	}
}

// WithFileSystem replaces the file system used for dataset and cache files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		fs:               fs.Default,
		autoSaveInterval: store.DefaultAutoSaveInterval,
		window:           window.DefaultConfig(),
		metricsCollector: metrics.Noop{},
		logger:           NoopLogger(),
		retry:            remote.DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
