package remote

import (
	"log/slog"

	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/resource"
)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithCacheDir sets the cache root.
func WithCacheDir(root string) Option {
	return func(s *Syncer) {
		s.cache = NewCacheDir(root)
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Syncer) {
		s.retry = p
	}
}

// WithLimits bounds download concurrency and request rate.
func WithLimits(cfg resource.Config) Option {
	return func(s *Syncer) {
		s.limits = resource.NewController(cfg)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Syncer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithFileSystem replaces the filesystem backing the cache.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(s *Syncer) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}
