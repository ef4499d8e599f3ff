// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with write/sync capabilities
//   - [FileSystem]: the operations the document store performs (open, read, rename, ...)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, sync, close and rename failures
//
// [WriteFileAtomic] is the single write path used for datasets and cache
// sidecars: temp file, fsync, rename.
//
// These operations take no context.Context. Local writes are not
// interruptible at the syscall level; remote I/O lives in package remote.
package fs
