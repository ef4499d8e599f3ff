package store

import (
	"log/slog"
	"time"

	"github.com/hupe1980/labelstore/codec"
	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/metrics"
)

// DefaultAutoSaveInterval is the debounce delay between the first unsaved
// mutation and the automatic write.
const DefaultAutoSaveInterval = 30 * time.Second

// DirtyMarker is notified after every successful save of a remote-backed
// document. remote.Syncer implements it.
type DirtyMarker interface {
	MarkDirty(localPath string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithFileSystem replaces the filesystem used for loading and saving.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithCodec sets the document codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c == nil {
			c = codec.Default
		}
		s.codec = c
	}
}

// WithAutoSaveInterval sets the debounce delay.
// A non-positive interval disables the timer; only Flush and Shutdown write.
func WithAutoSaveInterval(d time.Duration) Option {
	return func(s *Store) {
		s.interval = d
	}
}

// WithDirtyMarker makes the store remote-backed: every successful save
// marks m dirty.
func WithDirtyMarker(m DirtyMarker) Option {
	return func(s *Store) {
		s.marker = m
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBackup keeps a compressed copy of the previous document next to the
// target on every save.
func WithBackup(c Compression) Option {
	return func(s *Store) {
		s.backup = c
	}
}
