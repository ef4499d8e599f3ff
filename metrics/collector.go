// Package metrics defines the operational metrics hooks used by the store and
// the remote synchronizer.
//
// Implement [Collector] to integrate with a monitoring system, or use one of
// the built-ins:
//
//   - [Noop]: discards everything (the default)
//   - [Basic]: lock-free in-memory counters, handy for tests and debugging
//   - [Victoria]: VictoriaMetrics set, exportable in Prometheus text format
package metrics

import (
	"sync/atomic"
	"time"
)

// Remote operation names passed to RecordRemote.
const (
	OpGet  = "get"
	OpPut  = "put"
	OpHead = "head"
)

// Cache kinds passed to RecordCacheLookup.
const (
	CacheDataset = "dataset"
	CacheImage   = "image"
)

// Collector receives operational events.
// Implementations must be safe for concurrent use.
type Collector interface {
	// RecordMutation is called after each tracked document mutation.
	// op is the change kind, e.g. "annotations_added".
	RecordMutation(op string)

	// RecordSave is called after each attempted document write.
	// bytes is the encoded size, err is nil if the write succeeded.
	RecordSave(duration time.Duration, bytes int, err error)

	// RecordRemote is called once per remote call after its retries finished.
	RecordRemote(op string, attempts int, duration time.Duration, err error)

	// RecordCacheLookup is called when the local cache is consulted.
	RecordCacheLookup(kind string, hit bool)
}

// Noop is a no-op Collector.
type Noop struct{}

func (Noop) RecordMutation(string)                          {}
func (Noop) RecordSave(time.Duration, int, error)           {}
func (Noop) RecordRemote(string, int, time.Duration, error) {}
func (Noop) RecordCacheLookup(string, bool)                 {}

// Basic provides simple in-memory metrics collection.
type Basic struct {
	Mutations      atomic.Int64
	Saves          atomic.Int64
	SaveErrors     atomic.Int64
	SaveBytes      atomic.Int64
	SaveTotalNanos atomic.Int64
	RemoteCalls    atomic.Int64
	RemoteRetries  atomic.Int64
	RemoteErrors   atomic.Int64
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
}

// RecordMutation implements Collector.
func (b *Basic) RecordMutation(string) {
	b.Mutations.Add(1)
}

// RecordSave implements Collector.
func (b *Basic) RecordSave(duration time.Duration, bytes int, err error) {
	b.Saves.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(int64(bytes))
}

// RecordRemote implements Collector.
func (b *Basic) RecordRemote(_ string, attempts int, _ time.Duration, err error) {
	b.RemoteCalls.Add(1)
	if attempts > 1 {
		b.RemoteRetries.Add(int64(attempts - 1))
	}
	if err != nil {
		b.RemoteErrors.Add(1)
	}
}

// RecordCacheLookup implements Collector.
func (b *Basic) RecordCacheLookup(_ string, hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// Stats returns a snapshot of current metrics.
func (b *Basic) Stats() BasicStats {
	s := BasicStats{
		Mutations:     b.Mutations.Load(),
		Saves:         b.Saves.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		SaveBytes:     b.SaveBytes.Load(),
		RemoteCalls:   b.RemoteCalls.Load(),
		RemoteRetries: b.RemoteRetries.Load(),
		RemoteErrors:  b.RemoteErrors.Load(),
		CacheHits:     b.CacheHits.Load(),
		CacheMisses:   b.CacheMisses.Load(),
	}
	if s.Saves > 0 {
		s.SaveAvgNanos = b.SaveTotalNanos.Load() / s.Saves
	}
	return s
}

// BasicStats is a snapshot of Basic state.
type BasicStats struct {
	Mutations     int64
	Saves         int64
	SaveErrors    int64
	SaveBytes     int64
	SaveAvgNanos  int64
	RemoteCalls   int64
	RemoteRetries int64
	RemoteErrors  int64
	CacheHits     int64
	CacheMisses   int64
}
