// Package remote mirrors datasets and images stored in an object store into a
// content-addressed local cache.
//
// Every remote object is cached under a path derived from the MD5 of its full
// locator:
//
//	<root>/datasets/<key>.json       dataset documents
//	<root>/datasets/<key>.metadata   sidecar recording the ETag at download time
//	<root>/datasets/images/<key>.jpg images (original extension kept)
//
// A cached dataset is trusted only while its sidecar ETag matches a fresh HEAD
// of the object; any doubt means re-download. Images are immutable once
// referenced and are never re-validated.
//
// All network calls go through a bounded exponential-backoff retry. The
// [Syncer] also tracks a dirty flag for local saves not yet uploaded.
package remote
